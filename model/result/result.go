// Package result holds the outcomes a rebuild step and a whole upgrade resolve to.
package result

// Status is the tagged outcome of a step or an upgrade.
type Status string

const (
	Succeeded Status = "SUCCEEDED"
	Failed    Status = "FAILED"
)

// Result is produced once per step invocation and never mutated afterwards.
type Result struct {
	StepID string
	Status Status
	// Err is the diagnostic behind a Failed status; nil otherwise.
	Err error
	// Attempts counts the invocations the runner made, retries included.
	Attempts int
}

// Success returns a Succeeded result for stepID.
func Success(stepID string) Result {
	return Result{StepID: stepID, Status: Succeeded}
}

// Failure returns a Failed result for stepID carrying err.
func Failure(stepID string, err error) Result {
	return Result{StepID: stepID, Status: Failed, Err: err}
}

// Succeeded reports whether r is a success.
func (r Result) Succeeded() bool {
	return r.Status == Succeeded
}

// Outcome aggregates the step results of one upgrade run.
type Outcome struct {
	UpgradeID string
	RunID     string
	Status    Status
	// Results holds one entry per step that ran, in execution order.
	// Steps skipped after a failure have no entry.
	Results        []Result
	CleanupResults []Result
}

// Succeeded reports whether the upgrade as a whole succeeded.
func (o Outcome) Succeeded() bool {
	return o.Status == Succeeded
}

// FailedStep returns the result of the step that halted the run, if any.
func (o Outcome) FailedStep() (Result, bool) {
	for _, r := range o.Results {
		if !r.Succeeded() {
			return r, true
		}
	}
	return Result{}, false
}

// ExitCode maps the outcome to a process exit code.
func (o Outcome) ExitCode() int {
	if o.Succeeded() {
		return 0
	}
	return 1
}
