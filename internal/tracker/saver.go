package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/runnerr0/sitetime/internal/observability"
	"github.com/runnerr0/sitetime/internal/storage"
)

const saveTimeout = 5 * time.Second

// saver persists summaries off the event loop. The mailbox holds at most
// one pending summary; a newer one replaces it.
type saver struct {
	store   storage.Store
	logger  *slog.Logger
	mailbox chan storage.Summary
	done    chan struct{}
}

func newSaver(store storage.Store, logger *slog.Logger) *saver {
	s := &saver{
		store:   store,
		logger:  logger,
		mailbox: make(chan storage.Summary, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// offer queues sum for saving. Only the tracker loop calls it.
func (s *saver) offer(sum storage.Summary) {
	for {
		select {
		case s.mailbox <- sum:
			return
		default:
		}
		select {
		case <-s.mailbox:
		default:
		}
	}
}

func (s *saver) run() {
	defer close(s.done)
	for sum := range s.mailbox {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := s.store.Save(ctx, sum)
		cancel()
		if err != nil {
			observability.RecordSaveFailure()
			s.logger.Error("persist summary failed", "addresses", len(sum), "error", err)
			continue
		}
		s.logger.Debug("summary persisted", "addresses", len(sum))
	}
}

// close saves whatever is pending and waits for the worker to exit.
func (s *saver) close() {
	close(s.mailbox)
	<-s.done
}
