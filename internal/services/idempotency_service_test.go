package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/tbourn/go-content-dedup/internal/domain"
)

func TestIdempotency_SaveReplayExists(t *testing.T) {
	svc := newTestService(t)
	idem := NewIdempotencyService(svc.DB, 0)
	if idem.TTL != DefaultIdempotencyTTL {
		t.Fatalf("ttl default = %v", idem.TTL)
	}
	ctx := context.Background()

	rec, err := svc.Remember(ctx, domain.RecordInput{Candidate: domain.Candidate{Text: "hello"}})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	if got, err := idem.Replay(ctx, "bot", "k1"); err != nil || got != nil {
		t.Fatalf("replay before save: got=%v err=%v", got, err)
	}
	if ok, err := idem.Exists(ctx, "bot", "k1", time.Now().UTC()); err != nil || ok {
		t.Fatalf("exists before save: ok=%v err=%v", ok, err)
	}

	if err := idem.Save(ctx, "bot", "k1", rec.ID, http.StatusCreated); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Second save for the same pair is tolerated.
	if err := idem.Save(ctx, "bot", "k1", rec.ID+1, http.StatusCreated); err != nil {
		t.Fatalf("duplicate save: %v", err)
	}

	got, err := idem.Replay(ctx, "bot", "k1")
	if err != nil || got == nil || got.ID != rec.ID {
		t.Fatalf("replay: got=%+v err=%v", got, err)
	}
	if ok, _ := idem.Exists(ctx, "bot", "k1", time.Now().UTC()); !ok {
		t.Fatalf("expected key to exist")
	}
	// Keys are scoped per client.
	if got, _ := idem.Replay(ctx, "other", "k1"); got != nil {
		t.Fatalf("key leaked across clients")
	}
}

func TestIdempotency_EmptyKeyIsNoop(t *testing.T) {
	svc := newTestService(t)
	idem := NewIdempotencyService(svc.DB, time.Minute)
	ctx := context.Background()

	if err := idem.Save(ctx, "bot", "", 1, http.StatusCreated); err != nil {
		t.Fatalf("save empty key: %v", err)
	}
	if got, err := idem.Replay(ctx, "bot", ""); got != nil || err != nil {
		t.Fatalf("replay empty key: got=%v err=%v", got, err)
	}
}

func TestIdempotency_PurgedRecordIsNotReplayed(t *testing.T) {
	svc := newTestService(t)
	idem := NewIdempotencyService(svc.DB, time.Hour)
	ctx := context.Background()

	rec := rememberAt(t, svc, days(40), text("old"))
	if err := idem.Save(ctx, "bot", "k-old", rec.ID, http.StatusCreated); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Purge(ctx, 30); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if got, err := idem.Replay(ctx, "bot", "k-old"); got != nil || err != nil {
		t.Fatalf("expected no replay for purged record: got=%v err=%v", got, err)
	}
}

func TestIdempotency_StorageErrors(t *testing.T) {
	svc := newTestService(t)
	idem := NewIdempotencyService(svc.DB, time.Hour)
	_ = svc.Close()
	ctx := context.Background()

	if _, err := idem.Replay(ctx, "bot", "k"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("replay: expected ErrStorageUnavailable, got %v", err)
	}
	if err := idem.Save(ctx, "bot", "k", 1, http.StatusCreated); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("save: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := idem.Exists(ctx, "bot", "k", time.Now()); err == nil {
		t.Fatalf("exists: expected error on closed db")
	}
}
