// Package migration runs upgrades: ordered lists of idempotent, retryable steps.
package migration

import (
	"context"
	"fmt"

	"github.com/appbaseio/rebuild-indices/model/result"
)

// Kind tags a step with the phase of an upgrade it implements.
// The set is closed; the runner only dispatches on Run.
type Kind int

const (
	KindPreConfigure Kind = iota
	KindBuild
	KindPostConfigure
	KindCloneCleanup
)

func (k Kind) String() string {
	switch k {
	case KindPreConfigure:
		return "pre-configure"
	case KindBuild:
		return "build"
	case KindPostConfigure:
		return "post-configure"
	case KindCloneCleanup:
		return "clone-cleanup"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Executable performs one attempt of a step. It must not keep state
// between attempts beyond what was captured at construction.
type Executable func(ctx context.Context, mctx *Context) result.Result

// Step is a named unit of work with its own retry budget.
type Step struct {
	ID   string
	Kind Kind
	// Retries is the number of extra attempts after a failed one.
	Retries int
	Run     Executable
}

// Context carries run scoped parameters. Steps only read it.
type Context struct {
	RunID     string
	SkipClone bool
	args      map[string]string
}

// NewContext returns a Context for the run identified by runID.
func NewContext(runID string, skipClone bool, args map[string]string) *Context {
	cp := make(map[string]string, len(args))
	for k, v := range args {
		cp[k] = v
	}
	return &Context{RunID: runID, SkipClone: skipClone, args: cp}
}

// Arg returns the value of the named argument.
func (c *Context) Arg(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.args[key]
	return v, ok
}

// Upgrade is a named, ordered pipeline of steps.
type Upgrade interface {
	ID() string
	Steps() []Step
	// CleanupSteps run after Steps whatever their outcome.
	CleanupSteps() []Step
}
