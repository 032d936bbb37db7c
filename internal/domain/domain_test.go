package domain

import "testing"

func TestAgentKindIsValid(t *testing.T) {
	cases := []struct {
		kind AgentKind
		want bool
	}{
		{CodeWorker, true},
		{MCPBridge, true},
		{AgentKind("bogus"), false},
	}
	for _, c := range cases {
		if got := c.kind.IsValid(); got != c.want {
			t.Errorf("AgentKind(%q).IsValid() = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestAgentRecordHasCapabilities(t *testing.T) {
	rec := AgentRecord{
		Capabilities: []Capability{{Name: "code_generation"}, {Name: "code_lint"}},
	}
	if !rec.HasCapabilities(nil) {
		t.Error("empty requirement should always be satisfied")
	}
	if !rec.HasCapabilities([]string{"code_lint"}) {
		t.Error("expected code_lint capability to be present")
	}
	if rec.HasCapabilities([]string{"code_lint", "data_analysis"}) {
		t.Error("should not claim a capability the agent lacks")
	}
}

func TestTaskCapabilitiesFallsBackToType(t *testing.T) {
	task := Task{Type: TaskCodeLint}
	caps := task.Capabilities()
	if len(caps) != 1 || caps[0] != "code_lint" {
		t.Fatalf("expected default capability code_lint, got %v", caps)
	}

	explicit := Task{Type: TaskCodeLint, RequiredCapabilities: []string{"custom"}}
	caps = explicit.Capabilities()
	if len(caps) != 1 || caps[0] != "custom" {
		t.Fatalf("explicit requirement should override default, got %v", caps)
	}

	opaque := Task{Type: TaskOpaque}
	if caps := opaque.Capabilities(); caps != nil {
		t.Fatalf("opaque task with no explicit requirement should need nothing, got %v", caps)
	}
}

func TestWorstHealth(t *testing.T) {
	results := []HealthCheckResult{
		{Name: "a", Status: HealthPass},
		{Name: "b", Status: HealthWarn},
	}
	if got := WorstHealth(results); got != HealthWarn {
		t.Fatalf("WorstHealth() = %v, want %v", got, HealthWarn)
	}
	results = append(results, HealthCheckResult{Name: "c", Status: HealthFail})
	if got := WorstHealth(results); got != HealthFail {
		t.Fatalf("WorstHealth() = %v, want %v", got, HealthFail)
	}
}

func TestErrorRetryableClassification(t *testing.T) {
	timeout := NewError(ErrAgentTimeout, "agent did not respond", nil)
	if !timeout.Retryable {
		t.Error("agent timeout should be retryable")
	}
	notFound := NewError(ErrAgentNotFound, "no such agent", nil)
	if notFound.Retryable {
		t.Error("not-found should not be retryable")
	}
}

func TestErrorWithContextMerges(t *testing.T) {
	base := NewError(ErrTaskInvalid, "bad payload", map[string]any{"task_id": "t1"})
	extended := base.WithContext(map[string]any{"field": "priority"})
	if extended.Context["task_id"] != "t1" || extended.Context["field"] != "priority" {
		t.Fatalf("expected merged context, got %v", extended.Context)
	}
	if _, ok := base.Context["field"]; ok {
		t.Fatal("WithContext must not mutate the receiver")
	}
}
