package archive

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qwerty/api/models"
	"qwerty/api/store"
)

// WriterConfig configures the archive batch writer.
type WriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
	QueueSize    int
}

// Writer batches accepted view events and flushes them to the archive either
// when the batch fills up or when the flush timeout elapses. Enqueue never
// blocks ingestion: when the queue is full the event is dropped and counted,
// since the archive is a best-effort mirror of the durable Postgres log.
type Writer struct {
	archive store.ViewEventArchive
	config  WriterConfig
	log     *zap.Logger
	in      chan models.ViewEventRecord
	done    chan struct{}
}

func NewWriter(archive store.ViewEventArchive, config WriterConfig, log *zap.Logger) *Writer {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 200
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = 5 * time.Second
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 4 * config.MaxBatchSize
	}

	return &Writer{
		archive: archive,
		config:  config,
		log:     log,
		in:      make(chan models.ViewEventRecord, config.QueueSize),
		done:    make(chan struct{}),
	}
}

// Enqueue offers an event to the writer. Returns false when the queue is full
// and the event was dropped.
func (w *Writer) Enqueue(event models.ViewEventRecord) bool {
	select {
	case w.in <- event:
		return true
	default:
		w.log.Warn("Archive queue full, dropping event",
			zap.String("event_id", event.EventID))
		return false
	}
}

// Start runs the batching loop until ctx is cancelled, then flushes whatever
// is buffered. Close waits for that final flush.
func (w *Writer) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]models.ViewEventRecord, 0, w.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.drain(&batch)
			w.flush(batch)
			return

		case event := <-w.in:
			batch = append(batch, event)
			if len(batch) >= w.config.MaxBatchSize {
				w.flush(batch)
				batch = make([]models.ViewEventRecord, 0, w.config.MaxBatchSize)
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = make([]models.ViewEventRecord, 0, w.config.MaxBatchSize)
			}
		}
	}
}

// Wait blocks until the writer has shut down and flushed its final batch.
func (w *Writer) Wait() {
	<-w.done
}

func (w *Writer) drain(batch *[]models.ViewEventRecord) {
	for {
		select {
		case event := <-w.in:
			*batch = append(*batch, event)
		default:
			return
		}
	}
}

func (w *Writer) flush(batch []models.ViewEventRecord) {
	if len(batch) == 0 {
		return
	}

	// Flushes get their own timeout so a stuck archive cannot hang shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := w.archive.InsertViewEvents(ctx, batch); err != nil {
		w.log.Error("Failed to flush archive batch",
			zap.Error(err),
			zap.Int("event_count", len(batch)))
		return
	}

	w.log.Debug("Flushed archive batch", zap.Int("event_count", len(batch)))
}
