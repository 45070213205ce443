package snapshot

import (
	"log/slog"
	"sync"

	"github.com/spuklo/retromat/internal/domain"
	"github.com/spuklo/retromat/internal/metrics"
)

// Writer decouples snapshot writes from the protocol handlers: Enqueue never
// blocks, and a single goroutine serializes the actual file writes. Only the
// latest retro matters, so a pending write is replaced rather than queued.
type Writer struct {
	store    domain.SnapshotStore
	mu       sync.Mutex
	pending  *domain.Retro
	kick     chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewWriter(store domain.SnapshotStore) *Writer {
	w := &Writer{
		store:   store,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue schedules the retro for persistence, replacing any pending write.
func (w *Writer) Enqueue(retro domain.Retro) {
	w.mu.Lock()
	w.pending = &retro
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *Writer) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.kick:
			w.flush()
		case <-w.done:
			w.flush()
			return
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	retro := w.pending
	w.pending = nil
	w.mu.Unlock()

	if retro == nil {
		return
	}
	if err := w.store.Save(*retro); err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		slog.Error("Failed to save snapshot", "retro_id", retro.ID, "error", err)
		return
	}
	metrics.SnapshotWritesTotal.WithLabelValues("ok").Inc()
}

// Stop flushes any pending write and waits for the writer goroutine to exit.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	<-w.stopped
}
