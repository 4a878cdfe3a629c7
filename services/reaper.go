package services

import (
	"context"
	"sync"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/storage"
	"go.uber.org/zap"
)

const reapTimeout = 30 * time.Second

// MediaReaper deletes remote media in the background. Failures are logged
// and dropped; nothing is retried and callers never wait on it.
type MediaReaper struct {
	store storage.MediaStore
	log   *zap.Logger
	wg    sync.WaitGroup
}

func NewMediaReaper(store storage.MediaStore, log *zap.Logger) *MediaReaper {
	return &MediaReaper{store: store, log: log}
}

// Release schedules deletion of every non-empty url.
func (r *MediaReaper) Release(urls ...string) {
	var pending []string
	for _, u := range urls {
		if u != "" {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
		defer cancel()
		for _, u := range pending {
			if err := r.store.Delete(ctx, u); err != nil {
				r.log.Warn("media delete failed", zap.String("url", u), zap.Error(err))
				continue
			}
			r.log.Debug("media deleted", zap.String("url", u))
		}
	}()
}

// Wait blocks until every scheduled deletion has been attempted.
func (r *MediaReaper) Wait() { r.wg.Wait() }
