// Package gormstorage journals camera sessions to a SQL database through
// GORM, with an internal queue and a background writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ThirdPersonSW2/extension/internal/model"
	"github.com/ThirdPersonSW2/extension/internal/model/convert"
	"github.com/ThirdPersonSW2/extension/internal/queue"
	"github.com/ThirdPersonSW2/extension/pkg/core"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 200
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
	// FlushInterval is the longest a record waits in the queue.
	FlushInterval time.Duration
	// BatchSize rows per insert; a backlog this large is written early.
	BatchSize int
	// OnClose runs after the final flush, e.g. to close the pool.
	OnClose func() error
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	queue   *queue.Queue[model.CameraSession]
	written atomic.Uint64
	failed  atomic.Uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	return &Backend{
		deps:  deps,
		queue: queue.New[model.CameraSession](),
	}
}

// Init starts the DB writer goroutine. The schema must already be migrated.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend: no database")
	}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	if b.stop == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done

	if b.deps.OnClose != nil {
		return b.deps.OnClose()
	}
	return nil
}

// RecordSession queues rec for the writer.
func (b *Backend) RecordSession(rec core.SessionRecord) error {
	b.queue.Push(convert.SessionToGorm(rec))
	return nil
}

// Flush writes everything queued so far.
func (b *Backend) Flush() error {
	return writeQueue(b.deps.DB, b.queue, b.deps.BatchSize, &b.written, &b.failed)
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.queue.Len()
}

// Written returns the number of rows committed.
func (b *Backend) Written() uint64 {
	return b.written.Load()
}

// Sessions reads every journaled session back, oldest first.
func (b *Backend) Sessions() ([]core.SessionRecord, error) {
	var rows []model.CameraSession
	if err := b.deps.DB.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading camera sessions: %w", err)
	}

	out := make([]core.SessionRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := convert.SessionToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (b *Backend) writer() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error().Err(err).Int("pending", b.queue.Len()).Msg("Final flush failed")
			}
			return
		case <-b.queue.Ready():
			if b.queue.Len() < b.deps.BatchSize {
				continue
			}
		case <-ticker.C:
		}

		if err := b.Flush(); err != nil {
			b.deps.Logger.Error().Err(err).Msg("Error writing camera sessions")
		}
	}
}

// writeQueue drains q in batches, each in its own transaction. A failed
// batch is pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], batch int, written, failed *atomic.Uint64) error {
	for !q.Empty() {
		items := q.Drain(batch)
		if len(items) == 0 {
			return nil
		}

		tx := db.Begin()
		if err := tx.Create(&items).Error; err != nil {
			tx.Rollback()
			q.Push(items...)
			failed.Add(1)
			return fmt.Errorf("inserting %d rows: %w", len(items), err)
		}
		if err := tx.Commit().Error; err != nil {
			q.Push(items...)
			failed.Add(1)
			return fmt.Errorf("committing %d rows: %w", len(items), err)
		}
		written.Add(uint64(len(items)))
	}
	return nil
}
