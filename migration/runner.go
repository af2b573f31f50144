package migration

import (
	"context"
	"fmt"

	"github.com/appbaseio/rebuild-indices/model/result"
	"github.com/appbaseio/rebuild-indices/util"
	log "github.com/sirupsen/logrus"
)

const logTag = "[migration]"

// Phase is the coarse state of a run.
type Phase string

const (
	Pending   Phase = "PENDING"
	Running   Phase = "RUNNING"
	Succeeded Phase = "SUCCEEDED"
	Failed    Phase = "FAILED"
)

// State is the position of a run. Step is the index of the running step
// and is only meaningful while Phase is Running.
type State struct {
	Phase Phase
	Step  int
}

func (s State) String() string {
	if s.Phase == Running {
		return fmt.Sprintf("%s(%d)", s.Phase, s.Step)
	}
	return string(s.Phase)
}

// Runner executes upgrades. A halted upgrade is restarted from its first
// step on the next call; there is no resume.
type Runner struct {
	// OnTransition, when set, observes every state change of a run.
	OnTransition func(from, to State)
}

// NewRunner returns a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes the steps of u in order and resolves to a single outcome.
// A run without an id gets a fresh one; mctx itself is never modified.
// A step is attempted up to Retries+1 times; a step still failing halts the
// run and skips every later step. Run never panics on behalf of a step.
func (r *Runner) Run(ctx context.Context, u Upgrade, mctx *Context) result.Outcome {
	if mctx == nil {
		mctx = NewContext("", false, nil)
	}
	if mctx.RunID == "" {
		cp := *mctx
		cp.RunID = util.NewRunID()
		mctx = &cp
	}
	ctx = util.WithRunID(ctx, mctx.RunID)
	outcome := result.Outcome{UpgradeID: u.ID(), RunID: mctx.RunID, Status: result.Succeeded}
	state := State{Phase: Pending}

	log.Infoln(logTag, ": starting upgrade", u.ID(), "run", mctx.RunID)
	for i, step := range u.Steps() {
		state = r.transition(state, State{Phase: Running, Step: i})
		res := r.runWithRetries(ctx, step, mctx)
		outcome.Results = append(outcome.Results, res)
		if !res.Succeeded() {
			log.Errorln(logTag, ": step", step.ID, "failed after", res.Attempts, "attempt(s), halting upgrade", u.ID(), ":", res.Err)
			outcome.Status = result.Failed
			break
		}
		log.Infoln(logTag, ": step", step.ID, "succeeded")
	}

	if outcome.Status == result.Failed {
		r.transition(state, State{Phase: Failed})
	} else {
		r.transition(state, State{Phase: Succeeded})
	}

	for _, step := range u.CleanupSteps() {
		res := r.runWithRetries(ctx, step, mctx)
		outcome.CleanupResults = append(outcome.CleanupResults, res)
		if !res.Succeeded() {
			log.Warnln(logTag, ": cleanup step", step.ID, "failed:", res.Err)
		}
	}

	log.Infoln(logTag, ": upgrade", u.ID(), "finished with", outcome.Status)
	return outcome
}

func (r *Runner) transition(from, to State) State {
	log.Debugln(logTag, ":", from, "->", to)
	if r.OnTransition != nil {
		r.OnTransition(from, to)
	}
	return to
}

func (r *Runner) runWithRetries(ctx context.Context, step Step, mctx *Context) result.Result {
	retries := step.Retries
	if retries < 0 {
		retries = 0
	}

	var res result.Result
	attempts := 0
	for attempts <= retries {
		if err := ctx.Err(); err != nil {
			res = result.Failure(step.ID, fmt.Errorf("not started: %w", err))
			break
		}
		attempts++
		log.Infoln(logTag, ": executing step", step.ID, "attempt", attempts, "of", retries+1)
		res = invoke(ctx, step, mctx)
		if res.Succeeded() {
			break
		}
		log.Warnln(logTag, ": step", step.ID, "attempt", attempts, "failed:", res.Err)
	}
	res.Attempts = attempts
	return res
}

// invoke runs one attempt, normalizing panics and unset fields into the result.
func invoke(ctx context.Context, step Step, mctx *Context) (res result.Result) {
	defer func() {
		if p := recover(); p != nil {
			res = result.Failure(step.ID, fmt.Errorf("step panicked: %v", p))
		}
	}()

	if step.Run == nil {
		return result.Failure(step.ID, fmt.Errorf("step %s has nothing to run", step.ID))
	}
	res = step.Run(ctx, mctx)
	res.StepID = step.ID
	if res.Status != result.Succeeded {
		res.Status = result.Failed
	}
	return res
}
