package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Interval is the bucket width of a metrics query.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

var maxSpan = map[Interval]time.Duration{
	IntervalDay:   400 * 24 * time.Hour,
	IntervalWeek:  4 * 366 * 24 * time.Hour,
	IntervalMonth: 10 * 366 * 24 * time.Hour,
	IntervalYear:  100 * 366 * 24 * time.Hour,
}

var (
	ErrInvalidInterval  = errors.New("invalid interval")
	ErrInvalidRange     = errors.New("invalid date range")
	// ErrCurrencyRequired is returned without a currency: revenue metrics
	// only add up amounts of a single currency.
	ErrCurrencyRequired = errors.New("currency is required")
)

// Params selects the checkouts a query aggregates.
type Params struct {
	OrganizationID string
	Start          time.Time
	End            time.Time
	Interval       Interval
	// Currency is the lowercase ISO code all aggregated checkouts share.
	Currency       string
}

// Validate checks the interval, that the range fits the interval's limit, and
// that a currency is selected.
func (p Params) Validate() error {
	limit, ok := maxSpan[p.Interval]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, p.Interval)
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: end before start", ErrInvalidRange)
	}
	if p.End.Sub(p.Start) > limit {
		return fmt.Errorf("%w: range too large for %s interval", ErrInvalidRange, p.Interval)
	}
	if p.Currency == "" {
		return ErrCurrencyRequired
	}
	return nil
}

// Period holds every registered metric for one bucket.
type Period struct {
	Timestamp time.Time
	Values    map[Slug]int64
}

// MarshalJSON flattens the values next to the timestamp, one key per slug.
func (p Period) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Values)+1)
	out["timestamp"] = p.Timestamp
	for _, m := range Registry {
		out[string(m.Slug)] = p.Values[m.Slug]
	}
	return json.Marshal(out)
}

// Response is the result of a metrics query.
type Response struct {
	Periods []Period        `json:"periods"`
	Metrics map[Slug]Metric `json:"metrics"`
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Service aggregates checkout metrics from Postgres.
type Service struct {
	db querier
}

func NewService(db querier) *Service {
	return &Service{db: db}
}

// Query returns one period per interval bucket between Start and End,
// including empty buckets.
func (s *Service) Query(ctx context.Context, p Params) (*Response, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	const q = `
WITH periods AS (
    SELECT generate_series(date_trunc($1::text, $2::timestamptz), $3::timestamptz, ('1 ' || $1::text)::interval) AS ts
)
SELECT p.ts,
       COUNT(c.id),
       COUNT(c.id) FILTER (WHERE c.status = 'succeeded'),
       COUNT(c.id) FILTER (WHERE c.status = 'failed'),
       COALESCE(SUM(c.amount) FILTER (WHERE c.status = 'succeeded'), 0)::bigint,
       COALESCE(AVG(c.amount) FILTER (WHERE c.status = 'succeeded'), 0)::bigint
FROM periods p
LEFT JOIN checkouts c
       ON c.organization_id = $4
      AND date_trunc($1::text, c.created_at) = p.ts
      AND c.currency = $5::text
GROUP BY p.ts
ORDER BY p.ts
`
	rows, err := s.db.Query(ctx, q, string(p.Interval), p.Start, p.End, p.OrganizationID, p.Currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resp := &Response{Metrics: make(map[Slug]Metric, len(Registry))}
	for _, m := range Registry {
		resp.Metrics[m.Slug] = m
	}
	for rows.Next() {
		var (
			ts                                     time.Time
			total, succeeded, failed, revenue, avg int64
		)
		if err := rows.Scan(&ts, &total, &succeeded, &failed, &revenue, &avg); err != nil {
			return nil, err
		}
		resp.Periods = append(resp.Periods, Period{
			Timestamp: ts,
			Values: map[Slug]int64{
				SlugCheckouts:          total,
				SlugSucceededCheckouts: succeeded,
				SlugFailedCheckouts:    failed,
				SlugRevenue:            revenue,
				SlugAverageRevenue:     avg,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
