package migration

import (
	"context"
	"time"

	"github.com/appbaseio/rebuild-indices/errors"
	log "github.com/sirupsen/logrus"
)

// Lock keeps two runs from overlapping.
type Lock interface {
	// Acquire returns false when key is held by someone else.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Guard runs fn while holding key. It returns errors.ErrRunInProgress
// without calling fn when the lock is held elsewhere. The lock is not
// renewed while fn runs, so ttl must exceed the longest expected run.
func Guard(ctx context.Context, l Lock, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	ok, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrRunInProgress
	}
	log.Debugln(logTag, ": acquired lock", key)

	start := time.Now()
	runErr := fn(ctx)
	if elapsed := time.Since(start); elapsed > ttl {
		log.Warnln(logTag, ": run held lock", key, "for", elapsed, "which is longer than its ttl", ttl, ", another run may have taken it over")
	}

	// release even if ctx was cancelled while fn ran
	relErr := l.Release(context.Background(), key)
	if relErr != nil {
		log.Errorln(logTag, ": releasing lock", key, ":", relErr)
	}
	if runErr != nil {
		return runErr
	}
	return relErr
}
