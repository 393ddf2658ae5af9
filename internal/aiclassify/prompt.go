package aiclassify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// SystemPrompt is sent as the system message of every request.
const SystemPrompt = "You are a precise financial categorization assistant. Always respond with valid JSON only."

const promptInstructions = `Instructions:
1. Analyze each transaction's description, merchant, and amount
2. Match it to the most appropriate category from the list
3. If no category fits well, return null for that transaction
4. Consider common spending patterns:
   - Grocery stores, supermarkets, restaurants, bars, food delivery -> food categories
   - Gas stations, parking, transit, ride sharing -> transportation
   - Online marketplaces, retail and clothing stores, electronics -> shopping
   - Phone, internet, cable, hydro, water, insurance -> bills and utilities
   - Movies, games, streaming services -> entertainment
   - Payroll, deposits, transfers received -> income
   - Transfers sent, credit card payments -> transfers
Respond with ONLY a valid JSON object mapping transaction ID to category ID or null.

Example: {"123": 1, "124": 3, "125": null}`

// BuildPrompt renders the user prompt for one batch.
func BuildPrompt(batch []model.Transaction, cats []model.Category) string {
	var sb strings.Builder
	sb.WriteString("You are a financial transaction categorization expert. ")
	sb.WriteString("Please categorize each transaction into the most appropriate category from the provided list.\n\n")

	sb.WriteString("Available Categories:\n")
	for _, c := range cats {
		fmt.Fprintf(&sb, "- %s (ID: %d)\n", c.Name, c.ID)
	}

	sb.WriteString("\nTransactions to categorize:\n")
	for _, t := range batch {
		fmt.Fprintf(&sb, "ID %d: %s", t.ID, t.Description)
		if t.Merchant != "" {
			fmt.Fprintf(&sb, " | Merchant: %s", t.Merchant)
		}
		fmt.Fprintf(&sb, " | Amount: $%s | Type: %s\n", t.Amount.StringFixed(2), t.Type)
	}

	sb.WriteString("\n")
	sb.WriteString(promptInstructions)
	return sb.String()
}

// ExtractJSONObject returns the first balanced {...} in s. Braces inside JSON
// strings are ignored. Markdown fences and surrounding prose are tolerated.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseSuggestions decodes a model reply into a category suggestion for
// every transaction in batch. Transactions the reply omits, maps to null,
// or maps to a category outside validIDs get a nil suggestion.
func ParseSuggestions(reply string, batch []model.Transaction, validIDs map[int64]bool) (map[int64]*int64, error) {
	body, ok := ExtractJSONObject(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decoding reply: %w", err)
	}

	out := make(map[int64]*int64, len(batch))
	for _, t := range batch {
		out[t.ID] = nil
		v, ok := raw[strconv.FormatInt(t.ID, 10)]
		if !ok {
			continue
		}
		id, ok := categoryID(v)
		if !ok || !validIDs[id] {
			continue
		}
		out[t.ID] = &id
	}
	return out, nil
}

// categoryID accepts a JSON number or a numeric string.
func categoryID(v json.RawMessage) (int64, bool) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		id, err := n.Int64()
		return id, err == nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return id, err == nil
	}
	return 0, false
}
