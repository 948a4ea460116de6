// Package history persists completed conversions as a best-effort side
// channel. A failed write never fails the conversion that produced it.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"server/internal/infra"
)

// Record is one completed conversion. UserID is an opaque optional identity
// supplied by a collaborator; empty means anonymous.
type Record struct {
	UserID         string
	SourceImageRef string
	ModelURL       string
}

// Sink receives completed conversion records. Implementations must not block
// the caller and must swallow their own failures.
type Sink interface {
	Record(rec Record)
}

// Execer is the slice of the pgx pool API the sink needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertConversion = `
INSERT INTO jewelry_conversions (id, user_id, original_image_url, model_3d_url, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'completed', NOW(), NOW());
`

const writeTimeout = 10 * time.Second

// PGSink writes conversion records into PostgreSQL. Writes run on their own
// goroutine with their own deadline; errors are logged and deliberately
// dropped, which is the whole contract of this sink.
type PGSink struct {
	db     Execer
	logger infra.Logger
	wg     sync.WaitGroup
}

// NewPGSink builds a sink over a pgx pool (or anything satisfying Execer).
func NewPGSink(db Execer, logger infra.Logger) *PGSink {
	return &PGSink{db: db, logger: logger}
}

// Record queues one insert and returns immediately.
func (s *PGSink) Record(rec Record) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		s.insert(ctx, rec)
	}()
}

func (s *PGSink) insert(ctx context.Context, rec Record) {
	var userID *string
	if rec.UserID != "" {
		userID = &rec.UserID
	}
	_, err := s.db.Exec(ctx, insertConversion, uuid.NewString(), userID, rec.SourceImageRef, rec.ModelURL)
	if err != nil {
		// History is best-effort; the error stops here.
		s.logger.Warn().Err(err).
			Str("kind", "persistence_failure").
			Str("model_url", rec.ModelURL).
			Msg("failed to record conversion")
		return
	}
	s.logger.Debug().Str("model_url", rec.ModelURL).Msg("conversion recorded")
}

// Close waits for in-flight writes to finish. Used during graceful shutdown.
func (s *PGSink) Close() {
	s.wg.Wait()
}

// NoopSink discards records. Used when no database is configured.
type NoopSink struct{}

func (NoopSink) Record(Record) {}

var (
	_ Sink = (*PGSink)(nil)
	_ Sink = NoopSink{}
)
