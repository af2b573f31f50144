package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	rerrors "github.com/appbaseio/rebuild-indices/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type memLock struct {
	held       map[string]bool
	acquireErr error
	releaseErr error
	released   []string
}

func (m *memLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.acquireErr != nil {
		return false, m.acquireErr
	}
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *memLock) Release(ctx context.Context, key string) error {
	m.released = append(m.released, key)
	delete(m.held, key)
	return m.releaseErr
}

func TestGuard(t *testing.T) {
	Convey("Guard", t, func() {
		l := &memLock{held: map[string]bool{}}
		ctx := context.Background()
		ran := false
		fn := func(ctx context.Context) error { ran = true; return nil }

		Convey("runs fn and releases the lock", func() {
			So(Guard(ctx, l, "BuildIndices", time.Hour, fn), ShouldBeNil)
			So(ran, ShouldBeTrue)
			So(l.released, ShouldResemble, []string{"BuildIndices"})
			So(l.held["BuildIndices"], ShouldBeFalse)
		})

		Convey("refuses to run while the lock is held", func() {
			l.held["BuildIndices"] = true
			err := Guard(ctx, l, "BuildIndices", time.Hour, fn)
			So(err, ShouldEqual, rerrors.ErrRunInProgress)
			So(ran, ShouldBeFalse)
			So(l.released, ShouldBeEmpty)
		})

		Convey("surfaces acquire errors", func() {
			l.acquireErr = errors.New("cluster down")
			So(Guard(ctx, l, "BuildIndices", time.Hour, fn), ShouldEqual, l.acquireErr)
			So(ran, ShouldBeFalse)
		})

		Convey("releases even when fn fails, returning fn's error", func() {
			boom := errors.New("boom")
			l.releaseErr = errors.New("release failed")
			err := Guard(ctx, l, "BuildIndices", time.Hour, func(ctx context.Context) error { return boom })
			So(err, ShouldEqual, boom)
			So(l.released, ShouldResemble, []string{"BuildIndices"})
		})

		Convey("returns the release error when fn succeeded", func() {
			l.releaseErr = errors.New("release failed")
			So(Guard(ctx, l, "BuildIndices", time.Hour, fn), ShouldEqual, l.releaseErr)
		})
	})
}
