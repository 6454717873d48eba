package termsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/sheets"
)

// watchDebounce coalesces the burst of events an editor produces on save.
const watchDebounce = 200 * time.Millisecond

// RefreshCallback is called after a watcher-driven refresh of subject.
type RefreshCallback func(subject models.Subject, terms int)

// Watch observes a DirSource directory and force-refreshes the subject
// whose file was created or written. It runs until ctx
// is cancelled.
func (s *Synchronizer) Watch(ctx context.Context, dir string, cb RefreshCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	s.logger.Info("watcher: started", slog.String("dir", dir))

	pending := make(map[models.Subject]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(sub models.Subject) {
		pending[sub] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(watchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for sub := range pending {
				delete(pending, sub)
				terms := s.TermsForSubject(ctx, sub, true)
				s.logger.Debug("watcher: refreshed", slog.String("subject", string(sub)), slog.Int("terms", len(terms)))
				if cb != nil {
					cb(sub, len(terms))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			sub, ok := sheets.SubjectForFile(ev.Name)
			if !ok {
				continue
			}
			schedule(sub)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
