package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

// Period selects the date range of a report.
type Period string

const (
	PeriodLast30  Period = "last_30"
	PeriodLast90  Period = "last_90"
	PeriodLast180 Period = "last_180"
	PeriodLast365 Period = "last_365"
	PeriodAll     Period = "all"
	PeriodCustom  Period = "custom"
)

var periodDays = map[Period]int{
	PeriodLast30:  30,
	PeriodLast90:  90,
	PeriodLast180: 180,
	PeriodLast365: 365,
}

// ErrBadPeriod is returned for unknown periods and incomplete custom ranges.
var ErrBadPeriod = errors.New("invalid report period")

// Query selects the expenses a report covers. An empty Period means
// last_365; AccountID zero means every account.
type Query struct {
	Period    Period
	AccountID int64
	From, To  time.Time // custom only, inclusive
}

// Range returns the inclusive date bounds for q as of now. Zero bounds are open.
func (q Query) Range(now time.Time) (from, to time.Time, err error) {
	p := q.Period
	if p == "" {
		p = PeriodLast365
	}
	switch p {
	case PeriodAll:
		return time.Time{}, time.Time{}, nil
	case PeriodCustom:
		if q.From.IsZero() || q.To.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("custom period needs from and to: %w", ErrBadPeriod)
		}
		if q.To.Before(q.From) {
			return time.Time{}, time.Time{}, fmt.Errorf("custom period ends before it starts: %w", ErrBadPeriod)
		}
		return q.From, q.To, nil
	}
	days, ok := periodDays[p]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%q: %w", p, ErrBadPeriod)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -days), time.Time{}, nil
}

// Spending is every aggregation over one query's expenses.
type Spending struct {
	From, To     time.Time
	Transactions int
	Categories   []Bucket
	Trend        []Bucket
	Monthly      []Bucket
	Accounts     []Bucket
	Summary      Summary
}

// Service loads expenses and aggregates them.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a Service.
func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Spending reports on the user's expenses matching q.
func (s *Service) Spending(ctx context.Context, userID int64, q Query) (*Spending, error) {
	from, to, err := q.Range(s.now())
	if err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, store.Filter{
		UserID:    userID,
		AccountID: q.AccountID,
		Type:      model.TxnExpense,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	return &Spending{
		From:         from,
		To:           to,
		Transactions: len(txns),
		Categories:   CategoryBreakdown(txns, cats),
		Trend:        DailyTrend(txns),
		Monthly:      MonthlyComparison(txns),
		Accounts:     AccountDistribution(txns, accounts),
		Summary:      Summarize(txns, cats),
	}, nil
}

func parseMonth(key string) (string, error) {
	d, err := time.Parse("2006-01", key)
	if err != nil {
		return "", err
	}
	return d.Format("Jan 2006"), nil
}
