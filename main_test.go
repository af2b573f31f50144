package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	rerrors "github.com/appbaseio/rebuild-indices/errors"
	"github.com/appbaseio/rebuild-indices/model/result"
	. "github.com/smartystreets/goconvey/convey"
)

func runCLI(args ...string) (string, error) {
	var stopper interface{ Stop() }
	root := newRootCommand(&stopper)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeRegistry(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), "registry.toml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestIndicesCommand(t *testing.T) {
	Convey("indices", t, func() {
		t.Setenv("ES_CLUSTER_URL", "http://localhost:9200")

		Convey("prints the enumeration in order", func() {
			t.Setenv("INDEX_PREFIX", "staging")
			t.Setenv("REGISTRY_PATH", writeRegistry(t, `
extra_indices = ["graph_service_v1"]

[[entities]]
name = "entityA"
timeseries_aspects = ["usage"]

[[entities]]
name = "entityB"
`))

			out, err := runCLI("indices", "--env", "", "--log", "error")

			So(err, ShouldBeNil)
			So(out, ShouldEqual, "staging_entityaindex_v2\nstaging_entitya_usageaspect_v1\nstaging_entitybindex_v2\nstaging_graph_service_v1\n")
		})

		Convey("fails on an empty registry", func() {
			t.Setenv("INDEX_PREFIX", "")
			t.Setenv("REGISTRY_PATH", writeRegistry(t, "entities = []\n"))

			_, err := runCLI("indices", "--env", "", "--log", "error")

			So(errors.Is(err, rerrors.ErrNoIndices), ShouldBeTrue)
		})

		Convey("fails without a cluster url", func() {
			t.Setenv("ES_CLUSTER_URL", "")

			_, err := runCLI("indices", "--env", "", "--log", "error")

			var notSet *rerrors.EnvVarNotSetError
			So(errors.As(err, &notSet), ShouldBeTrue)
		})
	})
}

func TestRenderOutcome(t *testing.T) {
	Convey("renderOutcome lists every step result", t, func() {
		o := result.Outcome{
			UpgradeID: "BuildIndices",
			RunID:     "run-1",
			Status:    result.Failed,
			Results: []result.Result{
				{StepID: "PreConfigureESStep", Status: result.Failed, Err: errors.New("clone not acknowledged"), Attempts: 3},
			},
		}

		out := renderOutcome(o)

		So(out, ShouldContainSubstring, "BuildIndices (run run-1)")
		So(out, ShouldContainSubstring, "PreConfigureESStep")
		So(out, ShouldContainSubstring, "FAILED")
		So(out, ShouldContainSubstring, "attempts: 3")
		So(out, ShouldContainSubstring, "clone not acknowledged")
		So(out, ShouldNotContainSubstring, "cleanup")
	})
}

func TestExitCodes(t *testing.T) {
	Convey("exit codes", t, func() {
		code, ok := isExitError(&exitError{code: 1})
		So(ok, ShouldBeTrue)
		So(code, ShouldEqual, 1)

		_, ok = isExitError(errors.New("boom"))
		So(ok, ShouldBeFalse)
		So(execute([]string{"--help"}), ShouldEqual, 0)
	})
}
