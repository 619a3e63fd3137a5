package store

import (
	"sort"
	"time"

	"outreach_backend/platform/apperr"
)

// ActiveFlow returns a pointer to the contact's active FlowState for flowID.
func (c *Contact) ActiveFlow(flowID string) (*FlowState, bool) {
	for i := range c.ActiveFlows {
		if c.ActiveFlows[i].FlowID == flowID {
			return &c.ActiveFlows[i], true
		}
	}
	return nil, false
}

// AttachFlow adds a new active FlowState. A contact can hold at most one
// state per flow ID, active or finished duplicates are rejected.
func (c *Contact) AttachFlow(state FlowState) error {
	if _, ok := c.ActiveFlow(state.FlowID); ok {
		return apperr.Conflict("contact already has an active flow")
	}
	c.ActiveFlows = append(c.ActiveFlows, state)
	return nil
}

// RecordAttempt increments the call counter for an active flow and stamps
// lastCallAttempt. When the counter reaches maxAttempts the state moves to
// finishedFlows as unresponsive. Returns false when the flow is not active
// on this contact.
func (c *Contact) RecordAttempt(flowID string, maxAttempts int, now time.Time) bool {
	state, ok := c.ActiveFlow(flowID)
	if !ok {
		return false
	}

	state.CallCounter++
	c.LastCallAttempt = &now

	if maxAttempts > 0 && state.CallCounter >= maxAttempts {
		finished := *state
		finished.Status = FlowStatusUnresponsive
		c.removeActive(flowID)
		c.FinishedFlows = append(c.FinishedFlows, finished)
	}
	return true
}

// CompleteFlow marks a flow successful with the given outcome and call ID,
// moving it from activeFlows to finishedFlows and stamping
// lastCallAnswered/recentOutcome. When the flow is no longer active (a
// replayed webhook, or completion raced with max attempts) the most recent
// finished entry for the flow is updated instead.
func (c *Contact) CompleteFlow(flowID, outcome, callID string, now time.Time) {
	c.LastCallAnswered = &now
	c.RecentOutcome = outcome

	if state, ok := c.ActiveFlow(flowID); ok {
		finished := *state
		finished.Status = FlowStatusSuccess
		finished.Outcome = outcome
		finished.CallID = callID
		c.removeActive(flowID)
		c.FinishedFlows = append(c.FinishedFlows, finished)
		return
	}

	if idx := c.latestFinished(flowID); idx >= 0 {
		c.FinishedFlows[idx].Status = FlowStatusSuccess
		c.FinishedFlows[idx].Outcome = outcome
		c.FinishedFlows[idx].CallID = callID
	}
}

// MarkScheduled records the queued task for an active flow.
func (c *Contact) MarkScheduled(flowID string, nextStep, actual time.Time, taskID string) bool {
	state, ok := c.ActiveFlow(flowID)
	if !ok {
		return false
	}
	state.Status = FlowStatusScheduled
	state.NextStepTime = &nextStep
	state.ActualScheduledTime = &actual
	state.TaskID = taskID
	return true
}

// RemoveActiveFlow drops the flow from activeFlows, returning the removed
// state so callers can cancel its queued task.
func (c *Contact) RemoveActiveFlow(flowID string) (FlowState, bool) {
	state, ok := c.ActiveFlow(flowID)
	if !ok {
		return FlowState{}, false
	}
	removed := *state
	c.removeActive(flowID)
	return removed, true
}

func (c *Contact) removeActive(flowID string) {
	kept := c.ActiveFlows[:0]
	for _, s := range c.ActiveFlows {
		if s.FlowID != flowID {
			kept = append(kept, s)
		}
	}
	c.ActiveFlows = kept
}

func (c *Contact) latestFinished(flowID string) int {
	indexes := make([]int, 0, 2)
	for i := range c.FinishedFlows {
		if c.FinishedFlows[i].FlowID == flowID {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return -1
	}
	sort.Slice(indexes, func(a, b int) bool {
		return c.FinishedFlows[indexes[a]].CreatedAt.After(c.FinishedFlows[indexes[b]].CreatedAt)
	})
	return indexes[0]
}
