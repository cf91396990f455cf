package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdempotency_CreateGetRoundTrip(t *testing.T) {
	st := newStore(t)
	db := st.DB()
	ctx := context.Background()
	now := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "+380111", "ai-bot", "key-1", "m1", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.MessageID != "m1" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "+380111", "ai-bot", "key-1", now)
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.MessageID != "m1" {
		t.Fatalf("expected m1, got %+v", got)
	}
}

func TestIdempotency_DuplicateTuple(t *testing.T) {
	st := newStore(t)
	db := st.DB()
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "+380111", "c1", "key-1", "m1", 201, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "+380111", "c1", "key-1", "m2", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// Same key under a different chat is a distinct tuple.
	if _, err := CreateIdempotency(ctx, db, "+380111", "c2", "key-1", "m3", 201, time.Hour); err != nil {
		t.Fatalf("distinct tuple: %v", err)
	}
}

func TestIdempotency_ExpiredAndMissing(t *testing.T) {
	st := newStore(t)
	db := st.DB()
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "+380111", "c1", "key-1", "m1", 201, time.Millisecond); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	later := time.Now().UTC().Add(time.Second)
	if _, err := GetIdempotency(ctx, db, "+380111", "c1", "key-1", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired record, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "+380111", "", "key-1", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank chat id, got %v", err)
	}
}
