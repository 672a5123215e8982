package orchestrator

// Status is the lifecycle state of an execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	// StepCompleted means the skill ran and returned an output.
	StepCompleted StepStatus = "completed"

	// StepFailed means the skill was attempted and failed, or never ran
	// because its input could not be resolved or validated.
	StepFailed StepStatus = "failed"

	// StepSkipped means an earlier aborting failure stopped the run before
	// this step was attempted. Skipped steps appear in the step details so
	// len(StepDetails) == TotalSteps for every execution that started.
	StepSkipped StepStatus = "skipped"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Skill  string         `json:"skill"`
	StepID string         `json:"step_id"`
	Status StepStatus     `json:"status"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Execution is the run-time record of one template or workflow invocation.
// It is created per call, owned exclusively by that call, and discarded
// after the response is returned.
type Execution struct {
	ExecutionID    string       `json:"execution_id"`
	Status         Status       `json:"status"`
	TotalSteps     int          `json:"total_steps"`
	StepsCompleted int          `json:"steps_completed"`
	StepDetails    []StepResult `json:"step_details"`
}
