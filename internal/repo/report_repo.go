// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the read-only reporting queries consumed
// by BI tools: forecast totals, presence totals and the raw who/where/when
// attendance list.
//
// Each report is described by a ReportSpec (source, grouping, filterable and
// orderable columns). RunReport applies a ReportQuery to a spec so every
// endpoint shares the same filter grammar.
package repo

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// OrderRule is one ORDER BY term on an output column.
type OrderRule struct {
	Column string
	Desc   bool
}

// ReportQuery carries already-parsed request filters.
//
//   - Date restricts to a single day; otherwise Start/End bound the range.
//   - Equals maps a filter name to one value (=) or several (IN).
//   - Contains maps a filter name to a case-insensitive substring.
//   - Order falls back to the spec's default when empty.
type ReportQuery struct {
	Date     domain.Date
	Start    domain.Date
	End      domain.Date
	Equals   map[string][]any
	Contains map[string]string
	Order    []OrderRule
	Limit    int
}

// ReportSpec describes one report.
type ReportSpec struct {
	Name       string
	From       string
	Joins      []string
	Select     string
	Where      string
	GroupBy    string
	DateExpr   string
	Filters    map[string]string // filter name -> SQL expression
	Orderable  map[string]bool   // output column names
	DefaultOrd []OrderRule
}

// Built-in reports.
var (
	ReportForecastTotals = ReportSpec{
		Name:     "forecasts",
		From:     "meal_forecasts AS f",
		Joins:    []string{"JOIN mess_halls AS mh ON mh.id = f.mess_hall_id"},
		Select:   "f.date AS date, mh.code AS mess_hall, f.meal AS meal, COUNT(*) AS total",
		Where:    "f.will_eat = ?",
		GroupBy:  "f.date, mh.code, f.meal",
		DateExpr: "f.date",
		Filters: map[string]string{
			"mess_hall":    "mh.code",
			"mess_hall_id": "f.mess_hall_id",
			"meal":         "f.meal",
		},
		Orderable: map[string]bool{"date": true, "mess_hall": true, "meal": true, "total": true},
		DefaultOrd: []OrderRule{
			{Column: "date", Desc: true}, {Column: "mess_hall"}, {Column: "meal"},
		},
	}

	ReportPresenceTotals = ReportSpec{
		Name:     "presences",
		From:     "meal_presences AS p",
		Joins:    []string{"JOIN mess_halls AS mh ON mh.id = p.mess_hall_id"},
		Select:   "p.date AS date, mh.code AS mess_hall, p.meal AS meal, COUNT(*) AS total",
		GroupBy:  "p.date, mh.code, p.meal",
		DateExpr: "p.date",
		Filters: map[string]string{
			"mess_hall":    "mh.code",
			"mess_hall_id": "p.mess_hall_id",
			"meal":         "p.meal",
		},
		Orderable: map[string]bool{"date": true, "mess_hall": true, "meal": true, "total": true},
		DefaultOrd: []OrderRule{
			{Column: "date", Desc: true}, {Column: "mess_hall"}, {Column: "meal"},
		},
	}

	ReportWhereWhoWhen = ReportSpec{
		Name:     "wherewhowhen",
		From:     "meal_presences AS p",
		Joins:    []string{"JOIN mess_halls AS mh ON mh.id = p.mess_hall_id"},
		Select:   "p.user_id AS user_id, p.date AS date, mh.code AS mess_hall, p.meal AS meal",
		DateExpr: "p.date",
		Filters: map[string]string{
			"user_id":      "p.user_id",
			"mess_hall":    "mh.code",
			"mess_hall_id": "p.mess_hall_id",
			"meal":         "p.meal",
		},
		Orderable: map[string]bool{"date": true, "mess_hall": true, "meal": true, "user_id": true},
		DefaultOrd: []OrderRule{
			{Column: "date", Desc: true}, {Column: "mess_hall"}, {Column: "user_id"},
		},
	}
)

// TotalRow is one line of the forecast/presence totals reports.
type TotalRow struct {
	Date     domain.Date `json:"date"`
	MessHall string      `json:"mess_hall"`
	Meal     domain.Meal `json:"meal"`
	Total    int64       `json:"total"`
}

// WhereWhoWhenRow is one line of the attendance list report.
type WhereWhoWhenRow struct {
	UserID   string      `json:"user_id"`
	Date     domain.Date `json:"date"`
	MessHall string      `json:"mess_hall"`
	Meal     domain.Meal `json:"meal"`
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// RunReport executes spec with q and scans rows into dst (a pointer to a slice).
// Unknown filter or order names are rejected so callers cannot inject SQL.
func RunReport(ctx context.Context, db *gorm.DB, spec ReportSpec, q ReportQuery, dst any) error {
	tx := db.WithContext(ctx).Table(spec.From).Select(spec.Select)
	for _, j := range spec.Joins {
		tx = tx.Joins(j)
	}
	if spec.Where != "" {
		tx = tx.Where(spec.Where, true)
	}

	switch {
	case q.Date != "":
		tx = tx.Where(spec.DateExpr+" = ?", q.Date)
	default:
		if q.Start != "" {
			tx = tx.Where(spec.DateExpr+" >= ?", q.Start)
		}
		if q.End != "" {
			tx = tx.Where(spec.DateExpr+" <= ?", q.End)
		}
	}

	for name, vals := range q.Equals {
		expr, ok := spec.Filters[name]
		if !ok {
			return fmt.Errorf("report %s: unknown filter %q", spec.Name, name)
		}
		switch len(vals) {
		case 0:
		case 1:
			tx = tx.Where(expr+" = ?", vals[0])
		default:
			tx = tx.Where(expr+" IN ?", vals)
		}
	}
	for name, sub := range q.Contains {
		expr, ok := spec.Filters[name]
		if !ok {
			return fmt.Errorf("report %s: unknown filter %q", spec.Name, name)
		}
		tx = tx.Where("LOWER("+expr+") LIKE ? ESCAPE '\\'", "%"+likeEscaper.Replace(strings.ToLower(sub))+"%")
	}

	if spec.GroupBy != "" {
		tx = tx.Group(spec.GroupBy)
	}

	order := q.Order
	if len(order) == 0 {
		order = spec.DefaultOrd
	}
	for _, o := range order {
		if !spec.Orderable[o.Column] {
			return fmt.Errorf("report %s: cannot order by %q", spec.Name, o.Column)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		tx = tx.Order(o.Column + " " + dir)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx.Scan(dst).Error
}
