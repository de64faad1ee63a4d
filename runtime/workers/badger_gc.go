package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGCWorker periodically reclaims space in the value log. Badger never
// runs this on its own; without it, long-lived message stores only grow.
type BadgerGCWorker struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewBadgerGCWorker(db *badger.DB, log *slog.Logger, interval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{db: db, log: log, interval: interval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping badger GC worker")
			return nil
		case <-ticker.C:
			// One file per pass; 0.5 means "rewrite if half is garbage".
			err := w.db.RunValueLogGC(0.5)
			switch {
			case err == nil:
				w.log.Debug("Value log GC reclaimed a file")
			case stderrors.Is(err, badger.ErrNoRewrite):
				// Nothing worth rewriting this round.
			default:
				w.log.Warn("Value log GC failed", "error", err)
			}
		}
	}
}
