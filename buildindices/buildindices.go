// Package buildindices rebuilds the search indices of every registered entity
// while the cluster stays online.
//
// A run relaxes the refresh interval of every index and takes a clone of it,
// hands the indices to a Builder and then restores the steady-state refresh
// interval. Each phase is a migration step with its own retry budget.
package buildindices

import (
	"context"
	"sync"
	"time"

	"github.com/appbaseio/rebuild-indices/admin"
	"github.com/appbaseio/rebuild-indices/migration"
	"github.com/appbaseio/rebuild-indices/model/index"
	"github.com/appbaseio/rebuild-indices/model/result"
	"github.com/appbaseio/rebuild-indices/registry"
	log "github.com/sirupsen/logrus"
)

const logTag = "[buildindices]"

// UpgradeID names the upgrade for logs, locks and callers.
const UpgradeID = "BuildIndices"

// Step identifiers.
const (
	PreConfigureStepID  = "PreConfigureESStep"
	BuildStepID         = "BuildIndicesStep"
	PostConfigureStepID = "PostBuildIndicesStep"
	CloneCleanupStepID  = "CloneCleanupStep"
)

// Options tune a BuildIndices upgrade.
type Options struct {
	// BulkRefreshInterval is set on every index before the build, e.g. "60s".
	BulkRefreshInterval string
	// Retries is the retry budget of every step.
	Retries int
	// CloneWriteBlock write-blocks each index while it is cloned.
	CloneWriteBlock bool
	// CloneRetention, when positive, adds a cleanup step deleting clones
	// older than it.
	CloneRetention time.Duration
	// Now is the clock used for clone names and retention, time.Now if nil.
	Now func() time.Time
}

// BuildIndices is the migration.Upgrade rebuilding every index of a registry.
type BuildIndices struct {
	admin   admin.Admin
	source  registry.Source
	builder Builder
	opts    Options

	pre    *settingsStep
	post   *settingsStep
	clone  *cloneStep
	reaper *CloneReaper

	mu     sync.Mutex
	runID  string
	cached []index.Name
}

// New returns the upgrade. The steady-state refresh interval restored at the
// end of a run is read from a.RefreshInterval once, here.
func New(a admin.Admin, source registry.Source, builder Builder, opts Options) *BuildIndices {
	if builder == nil {
		builder = NewIndexBuilder(a, source)
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	restore := a.RefreshInterval()
	log.Debugln(logTag, ": refresh interval during build", opts.BulkRefreshInterval, ", restored to", restore)

	b := &BuildIndices{
		admin:   a,
		source:  source,
		builder: builder,
		opts:    opts,
		pre:     newRefreshIntervalStep(a, opts.BulkRefreshInterval),
		post:    newRefreshIntervalStep(a, restore),
		clone:   &cloneStep{admin: a, settings: a, namer: index.NewNamer(opts.Now), writeBlock: opts.CloneWriteBlock},
	}
	if opts.CloneRetention > 0 {
		b.reaper = NewCloneReaper(a, opts.CloneRetention, opts.Now)
	}
	return b
}

// ID implements migration.Upgrade.
func (b *BuildIndices) ID() string {
	return UpgradeID
}

// Steps implements migration.Upgrade.
func (b *BuildIndices) Steps() []migration.Step {
	return []migration.Step{
		{ID: PreConfigureStepID, Kind: migration.KindPreConfigure, Retries: b.opts.Retries, Run: b.preConfigure},
		{ID: BuildStepID, Kind: migration.KindBuild, Retries: b.opts.Retries, Run: b.build},
		{ID: PostConfigureStepID, Kind: migration.KindPostConfigure, Retries: b.opts.Retries, Run: b.postConfigure},
	}
}

// CleanupSteps implements migration.Upgrade. It is empty unless a clone
// retention was configured.
func (b *BuildIndices) CleanupSteps() []migration.Step {
	if b.reaper == nil {
		return []migration.Step{}
	}
	return []migration.Step{
		{ID: CloneCleanupStepID, Kind: migration.KindCloneCleanup, Retries: b.opts.Retries, Run: b.cleanupClones},
	}
}

// RestoredRefreshInterval is the value the post configure step applies.
func (b *BuildIndices) RestoredRefreshInterval() string {
	return b.post.value
}

// indices enumerates the registry once per run id, so every step of a run
// sees the same set. The runner gives every run an id; a step called directly
// without one enumerates on every call.
func (b *BuildIndices) indices(mctx *migration.Context) ([]index.Name, error) {
	var runID string
	if mctx != nil {
		runID = mctx.RunID
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if runID != "" && runID == b.runID {
		return b.cached, nil
	}
	names, err := registry.Enumerate(b.source)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		log.Warnln(logTag, ": registry resolved to no index, run", runID, "has nothing to do")
	}
	b.runID, b.cached = runID, names
	return names, nil
}

func (b *BuildIndices) preConfigure(ctx context.Context, mctx *migration.Context) result.Result {
	names, err := b.indices(mctx)
	if err != nil {
		return result.Failure(PreConfigureStepID, err)
	}
	if err := b.pre.apply(ctx, names); err != nil {
		return result.Failure(PreConfigureStepID, err)
	}
	if mctx != nil && mctx.SkipClone {
		log.Infoln(logTag, ": skipping clone of", len(names), "indices")
		return result.Success(PreConfigureStepID)
	}
	clones, err := b.clone.apply(ctx, names)
	if err != nil {
		return result.Failure(PreConfigureStepID, err)
	}
	log.Infoln(logTag, ": cloned", len(clones), "indices:", index.Strings(clones))
	return result.Success(PreConfigureStepID)
}

func (b *BuildIndices) build(ctx context.Context, mctx *migration.Context) result.Result {
	names, err := b.indices(mctx)
	if err != nil {
		return result.Failure(BuildStepID, err)
	}
	if err := b.builder.Build(ctx, names); err != nil {
		return result.Failure(BuildStepID, err)
	}
	return result.Success(BuildStepID)
}

func (b *BuildIndices) postConfigure(ctx context.Context, mctx *migration.Context) result.Result {
	names, err := b.indices(mctx)
	if err != nil {
		return result.Failure(PostConfigureStepID, err)
	}
	if err := b.post.apply(ctx, names); err != nil {
		return result.Failure(PostConfigureStepID, err)
	}
	return result.Success(PostConfigureStepID)
}

func (b *BuildIndices) cleanupClones(ctx context.Context, mctx *migration.Context) result.Result {
	names, err := b.indices(mctx)
	if err != nil {
		return result.Failure(CloneCleanupStepID, err)
	}
	if _, err := b.reaper.Reap(ctx, names); err != nil {
		return result.Failure(CloneCleanupStepID, err)
	}
	return result.Success(CloneCleanupStepID)
}
