package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskFlowScheduledCall fires when a scheduled flow call is due.
const TaskFlowScheduledCall = "flows.scheduled_call"

// FlowCallPayload identifies the call a due task should trigger.
type FlowCallPayload struct {
	FlowID         string `json:"flowId"`
	ContactID      string `json:"contactId"`
	OrganizationID string `json:"organizationId"`
}

// FlowCallTaskID builds the deterministic task ID for a flow/contact pair.
// Rescheduling the same pair replaces the previous task instead of
// stacking a second call.
func FlowCallTaskID(flowID, contactID string) string {
	return "flowcall:" + flowID + ":" + contactID
}

// NewFlowCallTask wraps a payload in an asynq task.
func NewFlowCallTask(payload FlowCallPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFlowScheduledCall, data), nil
}

// ParseFlowCallPayload decodes a task's payload.
func ParseFlowCallPayload(task *asynq.Task) (FlowCallPayload, error) {
	var payload FlowCallPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FlowCallPayload{}, err
	}
	return payload, nil
}
