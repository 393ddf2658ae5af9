package store

import (
	"strconv"
	"strings"
)

// dialect captures what differs between the supported SQL engines.
type dialect struct {
	name     string
	driver   string
	numbered bool // $1 placeholders instead of ?
	idType   string
	intType  string
	amtType  string
	boolType string
}

var (
	sqliteDialect = dialect{
		name:     "sqlite",
		driver:   "sqlite",
		idType:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		intType:  "INTEGER",
		amtType:  "TEXT",
		boolType: "INTEGER",
	}
	postgresDialect = dialect{
		name:     "postgres",
		driver:   "pgx",
		numbered: true,
		idType:   "BIGSERIAL PRIMARY KEY",
		intType:  "BIGINT",
		amtType:  "NUMERIC(12,2)",
		boolType: "BOOLEAN",
	}
)

func dialectFor(name string) (dialect, bool) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect, true
	case "postgres", "postgresql", "pgx":
		return postgresDialect, true
	}
	return dialect{}, false
}

// rebind rewrites ? placeholders for engines that number them.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var sb strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(q[i])
	}
	return sb.String()
}

func (d dialect) schema() []string {
	r := strings.NewReplacer("{id}", d.idType, "{int}", d.intType, "{amount}", d.amtType, "{bool}", d.boolType)
	out := make([]string, len(schemaTemplate))
	for i, s := range schemaTemplate {
		out[i] = r.Replace(s)
	}
	return out
}

// Dates are YYYY-MM-DD text and timestamps RFC 3339 text in every dialect,
// so ordering and equality behave the same everywhere.
var schemaTemplate = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id {id},
		user_id {int} NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id {id},
		user_id {int} NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		parent_id {int} REFERENCES categories(id),
		created_at TEXT NOT NULL,
		UNIQUE (user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id {id},
		account_id {int} NOT NULL REFERENCES accounts(id),
		date TEXT NOT NULL,
		description TEXT NOT NULL,
		amount {amount} NOT NULL,
		type TEXT NOT NULL,
		merchant TEXT NOT NULL DEFAULT '',
		category_id {int} REFERENCES categories(id),
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE (account_id, date, description, amount)
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_category_idx ON transactions (category_id)`,
	`CREATE TABLE IF NOT EXISTS rules (
		id {id},
		user_id {int} NOT NULL,
		keyword TEXT NOT NULL,
		category_id {int} NOT NULL REFERENCES categories(id),
		priority {int} NOT NULL,
		is_active {bool} NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rules_user_idx ON rules (user_id)`,
}
