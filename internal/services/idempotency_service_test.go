package services

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestIdempotencyService_RememberLookupExists(t *testing.T) {
	db := newSvcDB(t)
	svc := NewIdempotencyService(db, 0)
	if svc.TTL != DefaultIdempotencyTTL {
		t.Fatalf("TTL = %v", svc.TTL)
	}
	ctx := context.Background()
	const scope = "POST /api/v1/presences"

	rec, err := svc.Lookup(ctx, "u1", scope, "k1")
	if err != nil || rec != nil {
		t.Fatalf("empty lookup = %v, %v", rec, err)
	}
	if ok, err := svc.Exists(ctx, "u1", scope, "k1", time.Now().UTC()); err != nil || ok {
		t.Fatalf("Exists before remember = %v, %v", ok, err)
	}

	if err := svc.Remember(ctx, "u1", scope, "k1", "p-1", http.StatusCreated); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if err := svc.Remember(ctx, "u1", scope, "k1", "p-2", http.StatusCreated); err != nil {
		t.Fatalf("second Remember should be absorbed: %v", err)
	}

	rec, err = svc.Lookup(ctx, "u1", scope, "k1")
	if err != nil || rec == nil || rec.ResourceID != "p-1" || rec.Status != http.StatusCreated {
		t.Fatalf("lookup = %+v, %v", rec, err)
	}
	if ok, _ := svc.Exists(ctx, "u1", scope, "k1", time.Now().UTC()); !ok {
		t.Fatal("expected Exists after remember")
	}
	if ok, _ := svc.Exists(ctx, "u2", scope, "k1", time.Now().UTC()); ok {
		t.Fatal("keys are per user")
	}
	if ok, _ := svc.Exists(ctx, "u1", scope, "k1", time.Now().Add(48*time.Hour)); ok {
		t.Fatal("expired record must not match")
	}
}
