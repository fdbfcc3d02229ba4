package services

import (
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// ---------- test helpers ----------

var errBoom = errors.New("boom")

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, rows ...any) {
	t.Helper()
	for _, r := range rows {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed %T: %v", r, err)
		}
	}
}

// seedHalls creates unit 1 with halls 1 (Rancho Central) and 2 (Cassino dos Oficiais).
func seedHalls(t *testing.T, db *gorm.DB) {
	t.Helper()
	mustCreate(t, db,
		&domain.Unit{ID: 1, Code: "BAAN", DisplayName: "Base Aérea de Anápolis"},
		&domain.MessHall{ID: 1, UnitID: 1, Code: "RC", DisplayName: "Rancho Central"},
		&domain.MessHall{ID: 2, UnitID: 1, Code: "CO", DisplayName: "Cassino dos Oficiais"},
	)
}

func ptr[T any](v T) *T { return &v }
