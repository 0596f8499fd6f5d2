package activitylog

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/engagehub/internal/app/store/activity"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeStore collects inserted records, optionally failing every insert.
type fakeStore struct {
	mu      sync.Mutex
	records []activity.Record
	err     error
}

func (f *fakeStore) Insert(ctx context.Context, rec activity.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) all() []activity.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]activity.Record(nil), f.records...)
}

func TestRecorder_RecordAndDrain(t *testing.T) {
	store := &fakeStore{}
	rec := New(store, zap.NewNop(), 16)

	userID := primitive.NewObjectID()
	eventID := primitive.NewObjectID()

	req := httptest.NewRequest("POST", "/api/events/"+eventID.Hex()+"/register", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "test-agent")

	rec.Registered(req, userID, eventID, "registered for event")
	rec.Login(req, userID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	records := store.all()
	if len(records) != 2 {
		t.Fatalf("stored %d records, want 2", len(records))
	}
	first := records[0]
	if first.Action != activity.ActionRegister {
		t.Errorf("action = %q, want %q", first.Action, activity.ActionRegister)
	}
	if first.IP != "203.0.113.9" {
		t.Errorf("ip = %q, want %q", first.IP, "203.0.113.9")
	}
	if first.UserAgent != "test-agent" {
		t.Errorf("user_agent = %q, want %q", first.UserAgent, "test-agent")
	}
	if first.ResourceID == nil || *first.ResourceID != eventID {
		t.Errorf("resource_id = %v, want %v", first.ResourceID, eventID)
	}
}

func TestRecorder_StoreFailureIsSwallowed(t *testing.T) {
	store := &fakeStore{err: errors.New("mongo down")}
	rec := New(store, zap.NewNop(), 4)

	// Record must not panic or block even though every insert fails.
	rec.Created(nil, primitive.NewObjectID(), activity.ResourceExpert, primitive.NewObjectID(), "added expert")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestRecorder_FullQueueDrops(t *testing.T) {
	// A store that blocks until released, so the queue can fill up.
	release := make(chan struct{})
	blocking := &blockingStore{release: release}
	rec := New(blocking, zap.NewNop(), 1)

	userID := primitive.NewObjectID()
	// First record is picked up by the worker and blocks; the next fills
	// the buffer; the rest must be dropped without blocking the caller.
	for i := 0; i < 10; i++ {
		rec.Login(nil, userID)
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := blocking.count(); got > 2 {
		t.Errorf("stored %d records, want at most 2 with buffer 1", got)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Login(nil, primitive.NewObjectID())
	rec.Record(nil, activity.Record{})
	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("Close() on nil recorder error = %v", err)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	store := &fakeStore{}
	rec := New(store, zap.NewNop(), 4)
	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Must not panic on a closed queue.
	rec.Login(nil, primitive.NewObjectID())
}

type blockingStore struct {
	mu      sync.Mutex
	n       int
	release chan struct{}
}

func (b *blockingStore) Insert(ctx context.Context, rec activity.Record) error {
	<-b.release
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	return nil
}

func (b *blockingStore) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}
