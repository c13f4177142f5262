package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
)

const LockFileName = ".w4dj.lock"

var ErrLocked = errors.New("destination is locked by another process")

// Lock takes an exclusive lock on the destination directory, retrying until
// timeout. A non-positive timeout tries exactly once. The caller releases
// it with Unlock.
func Lock(ctx context.Context, dir string, timeout time.Duration) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(dir, LockFileName))

	var b backoff.BackOff = &backoff.StopBackOff{}
	if timeout > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 50 * time.Millisecond
		exp.MaxInterval = time.Second
		exp.MaxElapsedTime = timeout
		b = exp
	}

	err := backoff.Retry(func() error {
		ok, err := fl.TryLock()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed locking %s: %w", fl.Path(), err))
		} else if !ok {
			return ErrLocked
		}

		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}

	return fl, nil
}
