package provision

import "time"

// StepStatus is the outcome of a single pipeline step.
type StepStatus string

const (
	// StepDone means the step ran and succeeded.
	StepDone StepStatus = "done"
	// StepSkipped means a presence check made the step unnecessary.
	StepSkipped StepStatus = "skipped"
	// StepFailed means the step ran and failed; later steps did not run.
	StepFailed StepStatus = "failed"
)

// Step names used by the orchestrator for its fixed steps.
const (
	StepRuntime       = "vc-runtime"
	StepToolchain     = "msys2"
	StepToolchainWait = "msys2-ready"
	StepCleanup       = "installer-cleanup"
	StepPath          = "path"
)

// Actor identifies who ran the bootstrap.
type Actor struct {
	// Hostname is the machine name.
	Hostname string
	// Username is the account that launched the process.
	Username string
}

// StepRecord captures one step outcome.
type StepRecord struct {
	// Name is the step name.
	Name string
	// Status is the outcome.
	Status StepStatus
	// Detail is a short human-readable note (error text, skip reason).
	Detail string
}

// Journal is the record of one bootstrap run.
type Journal struct {
	// StartedAt is when the run began.
	StartedAt time.Time
	// FinishedAt is when the run ended, successfully or not.
	FinishedAt time.Time
	// Actor is who ran it.
	Actor *Actor
	// Recipe is the recipe name.
	Recipe string
	// Steps lists outcomes in execution order.
	Steps []StepRecord
	// Succeeded is true only when every step finished.
	Succeeded bool
}

// Record appends a step outcome.
func (j *Journal) Record(name string, status StepStatus, detail string) {
	j.Steps = append(j.Steps, StepRecord{
		Name:   name,
		Status: status,
		Detail: detail,
	})
}

// Status returns the recorded status of the named step and whether it ran.
func (j *Journal) Status(name string) (StepStatus, bool) {
	for _, step := range j.Steps {
		if step.Name == name {
			return step.Status, true
		}
	}

	return "", false
}
