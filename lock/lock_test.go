package lock

import (
	"context"
	"testing"
	"time"

	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/appbaseio/rebuild-indices/util"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	lockIndex = ".rebuild_indices_lock"
	docPath   = "/" + lockIndex + "/_doc/BuildIndices"
	conflict  = `{"error":{"type":"version_conflict_engine_exception","reason":"[BuildIndices]: version conflict, document already exists"},"status":409}`
)

func getResponse(owner, expires string) string {
	return `{"_index":"` + lockIndex + `","_type":"_doc","_id":"BuildIndices","_seq_no":4,"_primary_term":1,"found":true,` +
		`"_source":{"owner":"` + owner + `","acquired_at":"2026-10-17T08:00:00Z","expires_at":"` + expires + `"}}`
}

func newLock(t *testing.T, setups []*util.ServerSetup) (*Elasticsearch, *util.TestServer) {
	ts := util.BuildTestServer(t, setups)
	l := NewElasticsearch(util.NewTestClient(t, ts.URL, ""), lockIndex, "me")
	l.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	return l, ts
}

func TestAcquire(t *testing.T) {
	tests := []struct {
		name     string
		setups   []*util.ServerSetup
		acquired bool
		wantErr  bool
	}{
		{
			name: "free lock",
			setups: []*util.ServerSetup{
				{Method: "PUT", Path: docPath, Param: "op_type=create", HTTPStatus: 201, Response: `{"_index":".rebuild_indices_lock","_id":"BuildIndices","result":"created"}`},
			},
			acquired: true,
		},
		{
			name: "held by another run",
			setups: []*util.ServerSetup{
				{Method: "PUT", Path: docPath, Param: "op_type=create", HTTPStatus: 409, Response: conflict},
				{Method: "GET", Path: docPath, Response: getResponse("other", "2026-10-17T14:00:00Z")},
			},
			acquired: false,
		},
		{
			name: "already held by us",
			setups: []*util.ServerSetup{
				{Method: "PUT", Path: docPath, Param: "op_type=create", HTTPStatus: 409, Response: conflict},
				{Method: "GET", Path: docPath, Response: getResponse("me", "2026-10-17T14:00:00Z")},
			},
			acquired: true,
		},
		{
			name: "expired lock is taken over",
			setups: []*util.ServerSetup{
				{Method: "PUT", Path: docPath, Param: "op_type=create", HTTPStatus: 409, Response: conflict},
				{Method: "PUT", Path: docPath, Param: "if_seq_no=4", Response: `{"_index":".rebuild_indices_lock","_id":"BuildIndices","result":"updated"}`},
				{Method: "GET", Path: docPath, Response: getResponse("other", "2026-10-17T10:00:00Z")},
			},
			acquired: true,
		},
		{
			name: "takeover lost to a concurrent run",
			setups: []*util.ServerSetup{
				{Method: "PUT", Path: docPath, Param: "op_type=create", HTTPStatus: 409, Response: conflict},
				{Method: "PUT", Path: docPath, Param: "if_seq_no=4", HTTPStatus: 409, Response: conflict},
				{Method: "GET", Path: docPath, Response: getResponse("other", "2026-10-17T10:00:00Z")},
			},
			acquired: false,
		},
		{
			name: "cluster error",
			setups: []*util.ServerSetup{
				{Method: "PUT", Path: docPath, HTTPStatus: 403, Response: `{"error":{"type":"security_exception","reason":"forbidden"},"status":403}`},
			},
			wantErr: true,
		},
	}

	Convey("Acquire", t, func() {
		for _, tt := range tests {
			Convey(tt.name, func() {
				l, ts := newLock(t, tt.setups)
				defer ts.Close()

				acquired, err := l.Acquire(context.Background(), "BuildIndices", 2*time.Hour)
				if tt.wantErr {
					So(err, ShouldNotBeNil)
					return
				}
				So(err, ShouldBeNil)
				So(acquired, ShouldEqual, tt.acquired)
			})
		}
	})
}

func TestRelease(t *testing.T) {
	Convey("Release", t, func() {
		Convey("deletes an owned lock", func() {
			l, ts := newLock(t, []*util.ServerSetup{
				{Method: "GET", Path: docPath, Response: getResponse("me", "2026-10-17T14:00:00Z")},
				{Method: "DELETE", Path: docPath, Param: "if_seq_no=4", Response: `{"result":"deleted"}`},
			})
			defer ts.Close()

			So(l.Release(context.Background(), "BuildIndices"), ShouldBeNil)
			So(ts.Requests(), ShouldContain, "DELETE:"+docPath)
		})

		Convey("leaves someone else's lock alone", func() {
			l, ts := newLock(t, []*util.ServerSetup{
				{Method: "GET", Path: docPath, Response: getResponse("other", "2026-10-17T14:00:00Z")},
			})
			defer ts.Close()

			So(l.Release(context.Background(), "BuildIndices"), ShouldEqual, errors.ErrLockNotHeld)
			So(ts.Requests(), ShouldNotContain, "DELETE:"+docPath)
		})

		Convey("treats a missing lock as released", func() {
			l, ts := newLock(t, []*util.ServerSetup{
				{Method: "GET", Path: docPath, HTTPStatus: 404, Response: `{"_index":".rebuild_indices_lock","_type":"_doc","_id":"BuildIndices","found":false}`},
			})
			defer ts.Close()

			So(l.Release(context.Background(), "BuildIndices"), ShouldBeNil)
		})
	})
}

func TestOwner(t *testing.T) {
	Convey("Owner is unique per call", t, func() {
		a, b := Owner(), Owner()
		So(a, ShouldNotBeEmpty)
		So(a, ShouldNotEqual, b)
	})
}
