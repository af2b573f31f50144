package buildindices

import (
	"context"
	"testing"
	"time"

	"github.com/appbaseio/rebuild-indices/admin"
	"github.com/appbaseio/rebuild-indices/model/index"
	"github.com/appbaseio/rebuild-indices/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIndexBuilder(t *testing.T) {
	Convey("IndexBuilder", t, func() {
		ctx := context.Background()
		reg := &registry.Registry{
			IndexPrefix: "prod",
			Extra:       []string{"graph_service_v1"},
			Entity: []registry.Entity{{
				Name:     "dataset",
				Settings: map[string]interface{}{"number_of_shards": 1},
				Mappings: map[string]interface{}{"properties": map[string]interface{}{"urn": map[string]interface{}{"type": "keyword"}}},
			}},
		}
		names := []index.Name{"prod_datasetindex_v2", "prod_graph_service_v1"}

		Convey("creates missing indices with their registry body", func() {
			mock := admin.NewMock("1s")

			err := NewIndexBuilder(mock, reg).Build(ctx, names)

			So(err, ShouldBeNil)
			creates := mock.CallsTo("create")
			So(callIndices(creates), ShouldResemble, []string{"prod_datasetindex_v2", "prod_graph_service_v1"})
			So(creates[0].Settings["settings"], ShouldResemble, map[string]interface{}{"number_of_shards": 1})
			So(creates[0].Settings, ShouldContainKey, "mappings")
			So(creates[1].Settings, ShouldBeEmpty)
			So(mock.Indices["prod_graph_service_v1"], ShouldBeTrue)
		})

		Convey("puts mappings on existing indices only where declared", func() {
			mock := admin.NewMock("1s", "prod_datasetindex_v2", "prod_graph_service_v1")

			err := NewIndexBuilder(mock, reg).Build(ctx, names)

			So(err, ShouldBeNil)
			So(mock.CallsTo("create"), ShouldBeEmpty)
			So(callIndices(mock.CallsTo("mapping")), ShouldResemble, []string{"prod_datasetindex_v2"})
		})

		Convey("reports a registry failure", func() {
			err := NewIndexBuilder(admin.NewMock("1s"), nil).Build(ctx, names)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCloneReaper(t *testing.T) {
	Convey("CloneReaper", t, func() {
		ctx := context.Background()
		expired := index.CloneName("foo", startedAt.Add(-48*time.Hour))
		fresh := index.CloneName("foo", startedAt.Add(-time.Minute))
		other := index.CloneName("foo_bar", startedAt.Add(-48*time.Hour))
		mock := admin.NewMock("1s", "foo", expired.String(), fresh.String(), other.String())
		reaper := NewCloneReaper(mock, 24*time.Hour, fixedClock)

		Convey("lists only expired clones of the given sources", func() {
			names, err := reaper.Expired(ctx, []index.Name{"foo"})
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []index.Name{expired})
		})

		Convey("deletes what it lists", func() {
			deleted, err := reaper.Reap(ctx, []index.Name{"foo", "foo_bar"})
			So(err, ShouldBeNil)
			So(deleted, ShouldResemble, []index.Name{expired, other})
			So(mock.Indices[expired.String()], ShouldBeFalse)
			So(mock.Indices[fresh.String()], ShouldBeTrue)
		})

		Convey("stops at an unacknowledged delete", func() {
			mock.NackDelete[expired.String()] = true
			deleted, err := reaper.Reap(ctx, []index.Name{"foo", "foo_bar"})
			So(err, ShouldNotBeNil)
			So(deleted, ShouldBeEmpty)
			So(mock.Indices[other.String()], ShouldBeTrue)
		})

		Convey("refuses a non-positive retention", func() {
			for _, retention := range []time.Duration{0, -time.Hour} {
				_, err := NewCloneReaper(mock, retention, fixedClock).Reap(ctx, []index.Name{"foo"})
				So(err, ShouldNotBeNil)
			}
			So(mock.CallsTo("delete"), ShouldBeEmpty)
			So(mock.Indices[fresh.String()], ShouldBeTrue)
		})

		Convey("fails when the catalog cannot be listed", func() {
			mock.FailList = context.DeadlineExceeded
			_, err := reaper.Reap(ctx, []index.Name{"foo"})
			So(err, ShouldNotBeNil)
		})
	})
}
