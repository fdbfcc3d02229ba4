// Package services – MessHallService
//
// Read access to mess halls and units. Results are served through the cache
// service; Search filters the cached list without touching the database.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/cache"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// MessHallService lists and searches reference data.
type MessHallService struct {
	DB    *gorm.DB
	Cache *cache.Service
}

// NewMessHallService constructs a MessHallService. c may be nil.
func NewMessHallService(db *gorm.DB, c *cache.Service) *MessHallService {
	return &MessHallService{DB: db, Cache: c}
}

// List returns the mess halls of unitID, or all when unitID is 0.
func (s *MessHallService) List(ctx context.Context, unitID int64) ([]domain.MessHall, error) {
	tr := otel.Tracer("services/MessHallService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.Int64("unit_id", unitID)))
	defer span.End()

	key := "unit:" + strconv.FormatInt(unitID, 10)
	return cache.GetOrLoad(ctx, s.Cache, cache.EntityMessHalls, key, func(ctx context.Context) ([]domain.MessHall, error) {
		return repo.ListMessHalls(ctx, s.DB, unitID)
	})
}

// Get returns one mess hall or ErrMessHallNotFound.
func (s *MessHallService) Get(ctx context.Context, id int64) (*domain.MessHall, error) {
	if id <= 0 {
		return nil, ErrInvalidMessHall
	}
	all, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	// The cached list may predate the row.
	mh, err := repo.GetMessHall(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessHallNotFound
	}
	return mh, err
}

// Search returns halls of unitID whose code or display name contains q,
// ignoring case and accents. An empty q returns the full list.
func (s *MessHallService) Search(ctx context.Context, unitID int64, q string) ([]domain.MessHall, error) {
	all, err := s.List(ctx, unitID)
	if err != nil {
		return nil, err
	}
	needle := fold(q)
	if needle == "" {
		return all, nil
	}
	out := make([]domain.MessHall, 0, len(all))
	for _, h := range all {
		if strings.Contains(fold(h.DisplayName), needle) || strings.Contains(fold(h.Code), needle) {
			out = append(out, h)
		}
	}
	return out, nil
}

// Units returns every unit.
func (s *MessHallService) Units(ctx context.Context) ([]domain.Unit, error) {
	tr := otel.Tracer("services/MessHallService")
	ctx, span := tr.Start(ctx, "Units")
	defer span.End()

	return cache.GetOrLoad(ctx, s.Cache, cache.EntityUnits, "all", func(ctx context.Context) ([]domain.Unit, error) {
		return repo.ListUnits(ctx, s.DB)
	})
}

// fold lower-cases s and strips combining marks ("Almoço" -> "almoco").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// upperBR upper-cases rank and organization codes with pt-BR rules.
func upperBR(s string) string {
	return cases.Upper(language.BrazilianPortuguese).String(strings.TrimSpace(s))
}
