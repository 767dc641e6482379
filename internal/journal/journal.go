package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/cryptodash/internal/model"
)

// Journal accepts finished sessions.
type Journal interface {
	Record(s model.Session)
}

// Noop discards every session.
type Noop struct{}

func (Noop) Record(model.Session) {}

// BatchSender is the subset of *pgxpool.Pool the writer needs.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// WriterConfig holds batching configuration.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		BufferSize:    1000,
	}
}

// WriterMetrics tracks writer activity.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Dropped   int64
	Flushes   int64
}

// sessionRow is one relay_sessions row.
type sessionRow struct {
	ID        string
	Transport string
	Strategy  string
	Symbols   []string
	StartedAt time.Time
	ClosedAt  time.Time
	Reason    string
	Frames    int64
}

// Writer batches sessions into relay_sessions.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	input chan model.Session

	// Database
	db BatchSender

	// Batching
	batch   []sessionRow
	batchMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewWriter creates a new Writer.
func NewWriter(cfg WriterConfig, db BatchSender, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan model.Session, cfg.BufferSize),
		batch:  make([]sessionRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming sessions and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop()

	w.logger.Info("session journal started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains queued sessions, flushes and shuts down.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping session journal")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("session journal stop timed out")
	}

	// Drain whatever is still queued.
drain:
	for {
		select {
		case s := <-w.input:
			w.add(s)
		default:
			break drain
		}
	}

	w.flushWith(ctx)
	w.logger.Info("session journal stopped")
	return nil
}

// Record queues a session without blocking.
func (w *Writer) Record(s model.Session) {
	select {
	case w.input <- s:
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("session journal full, dropping session", "id", s.ID)
	}
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop accumulates batches and flushes them on size or timer.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case s := <-w.input:
			if w.add(s) {
				w.flushWith(w.ctx)
			}
		case <-ticker.C:
			w.flushWith(w.ctx)
		}
	}
}

// add appends a session and reports whether the batch is full.
func (w *Writer) add(s model.Session) bool {
	row := transform(s)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

func transform(s model.Session) sessionRow {
	symbols := s.Symbols
	if symbols == nil {
		symbols = []string{}
	}
	return sessionRow{
		ID:        s.ID,
		Transport: string(s.Transport),
		Strategy:  s.Strategy,
		Symbols:   symbols,
		StartedAt: s.StartedAt.UTC(),
		ClosedAt:  s.ClosedAt.UTC(),
		Reason:    s.Reason,
		Frames:    s.Frames,
	}
}

// flushWith writes the current batch to the database.
func (w *Writer) flushWith(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 || w.db == nil {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]sessionRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed sessions",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []sessionRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO relay_sessions (id, transport, strategy, symbols, started_at, closed_at, reason, frames)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.Transport, r.Strategy, r.Symbols, r.StartedAt, r.ClosedAt, r.Reason, r.Frames)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
