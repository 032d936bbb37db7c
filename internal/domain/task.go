package domain

import "time"

// TaskType is the closed set of task payload kinds the scheduler accepts.
type TaskType string

const (
	TaskCodeGeneration    TaskType = "code_generation"
	TaskCodeLint          TaskType = "code_lint"
	TaskCodeExecute       TaskType = "code_execute"
	TaskDataProcessing    TaskType = "data_processing"
	TaskDataAnalysis      TaskType = "data_analysis"
	TaskDataSummary       TaskType = "data_summary"
	TaskValidateCode      TaskType = "validate_code"
	TaskQualityReport     TaskType = "quality_report"
	TaskBridgeMessage     TaskType = "bridge_message"
	TaskTopologyUpdate    TaskType = "topology_update"
	TaskTopologySuggest   TaskType = "topology_suggestion"
	TaskManageConsensus   TaskType = "manage_consensus"
	TaskSystemUpgrade     TaskType = "system_upgrade"
	TaskOpaque            TaskType = "opaque"
)

// requiredCapability maps a task type to the capability name an agent must
// declare to receive it. TaskOpaque and unrecognized types carry no
// required capability and match any agent that the caller explicitly
// targeted via RequiredCapabilities.
var requiredCapability = map[TaskType]string{
	TaskCodeGeneration:  "code_generation",
	TaskCodeLint:        "code_lint",
	TaskCodeExecute:     "code_execute",
	TaskDataProcessing:  "data_processing",
	TaskDataAnalysis:    "data_analysis",
	TaskDataSummary:     "data_summary",
	TaskValidateCode:    "validate_code",
	TaskQualityReport:   "quality_report",
	TaskBridgeMessage:   "bridge_message",
	TaskTopologyUpdate:  "topology_update",
	TaskTopologySuggest: "topology_suggestion",
	TaskManageConsensus: "manage_consensus",
	TaskSystemUpgrade:   "system_upgrade",
}

// DefaultCapability returns the capability name implied by t, or "" for
// TaskOpaque and unknown types.
func (t TaskType) DefaultCapability() string {
	return requiredCapability[t]
}

// TaskPriority orders pending tasks within the scheduler's queue. Lower
// numeric value dispatches first.
type TaskPriority int

const (
	PriorityCritical TaskPriority = 0
	PriorityHigh     TaskPriority = 1
	PriorityNormal   TaskPriority = 2
	PriorityLow      TaskPriority = 3
)

// TaskStatus tracks a task through its lifecycle. The scheduler moves a
// task Pending -> Assigned on dispatch and Assigned -> {Completed, Failed}
// when it finishes; a missed deadline fails a Pending or Assigned task,
// and an Assigned task whose agent goes Offline or Error returns to
// Pending. Running and Cancelled are defined but the scheduler never
// sets them.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether s admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task is a unit of work routed through the scheduler to a capable agent.
// Payload is a tagged union: its shape is determined by Type and is opaque
// to the scheduler, which only inspects Type, Priority, RequiredCapabilities
// and Deadline.
type Task struct {
	ID                   string         `json:"id"`
	Type                 TaskType       `json:"type"`
	Priority             TaskPriority   `json:"priority"`
	RequiredCapabilities []string       `json:"required_capabilities,omitempty"`
	Payload              map[string]any `json:"payload,omitempty"`
	Status               TaskStatus     `json:"status"`
	AssignedTo           string         `json:"assigned_to,omitempty"`
	Result               map[string]any `json:"result,omitempty"`
	Error                *Error         `json:"error,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	Deadline             *time.Time     `json:"deadline,omitempty"`
}

// Capabilities returns the capabilities an agent must hold to accept t:
// the explicit RequiredCapabilities if set, else the type's default.
func (t Task) Capabilities() []string {
	if len(t.RequiredCapabilities) > 0 {
		return t.RequiredCapabilities
	}
	if c := t.Type.DefaultCapability(); c != "" {
		return []string{c}
	}
	return nil
}

// Overdue reports whether t has a deadline and now is past it.
func (t Task) Overdue(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline)
}
