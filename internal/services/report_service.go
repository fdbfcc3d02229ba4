// Package services – ReportService
//
// ReportService exposes the read-only BI reports. Query parameters share one
// grammar across reports:
//
//	date=YYYY-MM-DD                 single day
//	startDate=...&endDate=...       inclusive range
//	<filter>=v | v1,v2              exact match or IN list
//	<filter>_ilike=text             case-insensitive substring
//	order=col[:asc|desc],...        whitelisted output columns
//	limit=N                         clamped to [1, MaxLimit]
package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// Report names.
const (
	ReportForecasts    = "forecasts"
	ReportPresences    = "presences"
	ReportWhereWhoWhen = "wherewhowhen"
)

var reports = map[string]repo.ReportSpec{
	ReportForecasts:    repo.ReportForecastTotals,
	ReportPresences:    repo.ReportPresenceTotals,
	ReportWhereWhoWhen: repo.ReportWhereWhoWhen,
}

// reserved parameters are not filters.
var reserved = map[string]bool{"date": true, "startDate": true, "endDate": true, "order": true, "limit": true}

// ReportService runs reports.
type ReportService struct {
	DB           *gorm.DB
	DefaultLimit int
	MaxLimit     int
}

// NewReportService constructs a ReportService.
func NewReportService(db *gorm.DB, defaultLimit, maxLimit int) *ReportService {
	if maxLimit <= 0 {
		maxLimit = 10000
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(1000, maxLimit)
	}
	return &ReportService{DB: db, DefaultLimit: defaultLimit, MaxLimit: maxLimit}
}

// Run executes the named report with params. The result is a
// []repo.TotalRow or []repo.WhereWhoWhenRow.
func (s *ReportService) Run(ctx context.Context, name string, params url.Values) (any, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(attribute.String("report", name), attribute.String("query", params.Encode())))
	defer span.End()

	spec, ok := reports[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown report %q", ErrInvalidReportParam, name)
	}
	q, err := s.ParseQuery(spec, params)
	if err != nil {
		return nil, err
	}

	if name == ReportWhereWhoWhen {
		rows := []repo.WhereWhoWhenRow{}
		if err := repo.RunReport(ctx, s.DB, spec, q, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	rows := []repo.TotalRow{}
	if err := repo.RunReport(ctx, s.DB, spec, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ParseQuery turns request parameters into a repo.ReportQuery for spec.
func (s *ReportService) ParseQuery(spec repo.ReportSpec, params url.Values) (repo.ReportQuery, error) {
	q := repo.ReportQuery{
		Equals:   map[string][]any{},
		Contains: map[string]string{},
		Limit:    s.DefaultLimit,
	}

	var err error
	if v := params.Get("date"); v != "" {
		if q.Date, err = domain.ParseDate(v); err != nil {
			return q, fmt.Errorf("%w: date", ErrInvalidReportParam)
		}
	} else {
		if v := params.Get("startDate"); v != "" {
			if q.Start, err = domain.ParseDate(v); err != nil {
				return q, fmt.Errorf("%w: startDate", ErrInvalidReportParam)
			}
		}
		if v := params.Get("endDate"); v != "" {
			if q.End, err = domain.ParseDate(v); err != nil {
				return q, fmt.Errorf("%w: endDate", ErrInvalidReportParam)
			}
		}
		if q.Start != "" && q.End != "" && q.End < q.Start {
			return q, fmt.Errorf("%w: endDate before startDate", ErrInvalidReportParam)
		}
	}

	for key, vals := range params {
		if reserved[key] || len(vals) == 0 || vals[0] == "" {
			continue
		}
		if field, ok := strings.CutSuffix(key, "_ilike"); ok {
			if _, known := spec.Filters[field]; !known {
				return q, fmt.Errorf("%w: unknown filter %q", ErrInvalidReportParam, key)
			}
			q.Contains[field] = vals[0]
			continue
		}
		if _, known := spec.Filters[key]; !known {
			return q, fmt.Errorf("%w: unknown filter %q", ErrInvalidReportParam, key)
		}
		list, err := filterValues(key, vals[0])
		if err != nil {
			return q, err
		}
		q.Equals[key] = list
	}

	if v := params.Get("order"); v != "" {
		for _, part := range strings.Split(v, ",") {
			col, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
			if !spec.Orderable[col] {
				return q, fmt.Errorf("%w: cannot order by %q", ErrInvalidReportParam, col)
			}
			switch strings.ToLower(dir) {
			case "", "asc":
				q.Order = append(q.Order, repo.OrderRule{Column: col})
			case "desc":
				q.Order = append(q.Order, repo.OrderRule{Column: col, Desc: true})
			default:
				return q, fmt.Errorf("%w: order direction %q", ErrInvalidReportParam, dir)
			}
		}
	}

	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("%w: limit", ErrInvalidReportParam)
		}
		q.Limit = max(1, min(n, s.MaxLimit))
	}
	return q, nil
}

func filterValues(key, raw string) ([]any, error) {
	parts := strings.Split(raw, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		switch key {
		case "mess_hall_id":
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: mess_hall_id %q", ErrInvalidReportParam, p)
			}
			out = append(out, n)
		case "meal":
			m, err := domain.ParseMeal(p)
			if err != nil {
				return nil, fmt.Errorf("%w: meal %q", ErrInvalidReportParam, p)
			}
			out = append(out, string(m))
		default:
			out = append(out, p)
		}
	}
	return out, nil
}
