// Package activitylog records the who-did-what activity trail without
// putting the write on the request path.
//
// Record hands the entry to a buffered queue and returns immediately. A
// single worker drains the queue into MongoDB. Recording is best effort:
// a full queue drops the entry with a warning, and a store failure is
// logged and forgotten. A request never fails because its trail entry
// could not be written.
package activitylog

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/engagehub/internal/app/store/activity"
	"github.com/dalemusser/engagehub/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultBuffer is the queue capacity used when config does not set one.
const DefaultBuffer = 256

// insertTimeout bounds each store write so a slow database cannot wedge
// the worker behind one entry.
const insertTimeout = 5 * time.Second

// Inserter is the slice of the activity store the worker needs.
type Inserter interface {
	Insert(ctx context.Context, rec activity.Record) error
}

// Recorder queues activity records for asynchronous persistence.
// A nil *Recorder is valid and drops everything, so tests and callers
// that do not care about the trail can pass nil.
type Recorder struct {
	store  Inserter
	logger *zap.Logger

	queue chan activity.Record
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a Recorder and starts its worker.
func New(store Inserter, logger *zap.Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	rec := &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan activity.Record, buffer),
	}
	rec.wg.Add(1)
	go rec.run()
	return rec
}

func (rec *Recorder) run() {
	defer rec.wg.Done()
	for entry := range rec.queue {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		err := rec.store.Insert(ctx, entry)
		cancel()
		if err != nil {
			rec.logger.Error("failed to store activity record",
				zap.String("action", entry.Action),
				zap.String("resource", entry.Resource),
				zap.Error(err))
		}
	}
}

// Record enqueues an activity record, filling in request context (IP and
// user agent) when r is non-nil. It never blocks: if the queue is full
// the record is dropped with a warning.
func (rec *Recorder) Record(r *http.Request, entry activity.Record) {
	if rec == nil {
		return
	}
	if r != nil {
		entry.IP = network.GetClientIP(r)
		entry.UserAgent = r.UserAgent()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closed {
		return
	}
	select {
	case rec.queue <- entry:
	default:
		rec.logger.Warn("activity queue full, dropping record",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource))
	}
}

// Close stops accepting records and waits for the worker to drain the
// queue, or for ctx to expire.
func (rec *Recorder) Close(ctx context.Context) error {
	if rec == nil {
		return nil
	}
	rec.mu.Lock()
	if !rec.closed {
		rec.closed = true
		close(rec.queue)
	}
	rec.mu.Unlock()

	done := make(chan struct{})
	go func() {
		rec.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Convenience methods - one per common trail entry                             |
*─────────────────────────────────────────────────────────────────────────────*/

// Login records a successful sign-in.
func (rec *Recorder) Login(r *http.Request, userID primitive.ObjectID) {
	rec.Record(r, activity.Record{
		UserID:      userID,
		Action:      activity.ActionLogin,
		Resource:    activity.ResourceUser,
		ResourceID:  &userID,
		Description: "signed in",
	})
}

// Logout records a sign-out.
func (rec *Recorder) Logout(r *http.Request, userID primitive.ObjectID) {
	rec.Record(r, activity.Record{
		UserID:      userID,
		Action:      activity.ActionLogout,
		Resource:    activity.ResourceUser,
		ResourceID:  &userID,
		Description: "signed out",
	})
}

// Created records the creation of a resource.
func (rec *Recorder) Created(r *http.Request, userID primitive.ObjectID, resource string, resourceID primitive.ObjectID, description string) {
	rec.Record(r, activity.Record{
		UserID:      userID,
		Action:      activity.ActionCreate,
		Resource:    resource,
		ResourceID:  &resourceID,
		Description: description,
	})
}

// Updated records a change to a resource.
func (rec *Recorder) Updated(r *http.Request, userID primitive.ObjectID, resource string, resourceID primitive.ObjectID, description string) {
	rec.Record(r, activity.Record{
		UserID:      userID,
		Action:      activity.ActionUpdate,
		Resource:    resource,
		ResourceID:  &resourceID,
		Description: description,
	})
}

// Deleted records the removal (soft or hard) of a resource.
func (rec *Recorder) Deleted(r *http.Request, userID primitive.ObjectID, resource string, resourceID primitive.ObjectID, description string) {
	rec.Record(r, activity.Record{
		UserID:      userID,
		Action:      activity.ActionDelete,
		Resource:    resource,
		ResourceID:  &resourceID,
		Description: description,
	})
}

// Registered records an event registration.
func (rec *Recorder) Registered(r *http.Request, userID, eventID primitive.ObjectID, description string) {
	rec.Record(r, activity.Record{
		UserID:      userID,
		Action:      activity.ActionRegister,
		Resource:    activity.ResourceEvent,
		ResourceID:  &eventID,
		Description: description,
	})
}

// Exported records a data export.
func (rec *Recorder) Exported(r *http.Request, userID primitive.ObjectID, resource, description string) {
	rec.Record(r, activity.Record{
		UserID:      userID,
		Action:      activity.ActionExport,
		Resource:    resource,
		Description: description,
	})
}
