package models

import "time"

// Action is the kind of lifecycle event a CompletionRecord logs.
type Action string

const (
	ActionCompleted           Action = "completed"
	ActionSnoozed             Action = "snoozed"
	ActionMissed              Action = "missed"
	ActionSkipped             Action = "skipped"
	ActionPendingConfirmation Action = "pending_confirmation"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCompleted, ActionSnoozed, ActionMissed, ActionSkipped, ActionPendingConfirmation:
		return true
	}
	return false
}

// Resolves reports whether the action settles an occurrence, and so counts toward the completion rate.
func (a Action) Resolves() bool {
	return a == ActionCompleted || a == ActionMissed || a == ActionSkipped
}

// CompletionRecord is append-only.
type CompletionRecord struct {
	ID        string    `json:"id"`
	AlarmID   string    `json:"alarm_id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
}

// StreakInfo is derived from CompletionRecord history and never persisted.
type StreakInfo struct {
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	TotalCompletions int     `json:"total_completions"`
	CompletionRate   float64 `json:"completion_rate"`
}

// State is the lifecycle state of an alarm.
type State string

const (
	StateScheduled           State = "scheduled"
	StateAlerting            State = "alerting"
	StateSnoozed             State = "snoozed"
	StatePendingConfirmation State = "pending_confirmation"
	StateDisabled            State = "disabled"
)
