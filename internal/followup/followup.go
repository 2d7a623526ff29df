// Package followup derives reminder instants for an alarm awaiting confirmation
// and the stable slot identifiers the platform scheduler tracks them by.
package followup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/chime/internal/constants"
)

// Schedule returns count instants spaced intervalMillis apart, starting one
// interval after base. Non-positive arguments yield nil.
func Schedule(base time.Time, intervalMillis int64, count int) []time.Time {
	if intervalMillis <= 0 || count <= 0 {
		return nil
	}
	step := time.Duration(intervalMillis) * time.Millisecond
	out := make([]time.Time, count)
	for k := 1; k <= count; k++ {
		out[k-1] = base.Add(time.Duration(k) * step)
	}
	return out
}

// SlotID names the index-th (1-based) follow-up slot of an alarm.
func SlotID(alarmID string, index int) string {
	return fmt.Sprintf("%s/%s/%d", alarmID, constants.SlotKindFollowUp, index)
}

// SlotIDs returns the ids of follow-up slots 1..count.
func SlotIDs(alarmID string, count int) []string {
	if count <= 0 {
		return nil
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = SlotID(alarmID, i+1)
	}
	return ids
}

// AlarmSlotID names the slot for the index-th (1-based) time of day of an alarm's next occurrence.
func AlarmSlotID(alarmID string, index int) string {
	return fmt.Sprintf("%s/%s/%d", alarmID, constants.SlotKindAlarm, index)
}

// SnoozeSlotID names the single snooze slot of an alarm.
func SnoozeSlotID(alarmID string) string {
	return alarmID + "/" + constants.SlotKindSnooze
}

// Slot is a parsed slot id.
type Slot struct {
	AlarmID string
	Kind    string
	Index   int
}

// ParseSlotID splits an id produced by SlotID, AlarmSlotID or SnoozeSlotID.
func ParseSlotID(id string) (Slot, error) {
	parts := strings.Split(id, "/")
	switch {
	case len(parts) == 2 && parts[1] == constants.SlotKindSnooze:
		return Slot{AlarmID: parts[0], Kind: constants.SlotKindSnooze}, nil
	case len(parts) == 3 && (parts[1] == constants.SlotKindAlarm || parts[1] == constants.SlotKindFollowUp):
		idx, err := strconv.Atoi(parts[2])
		if err != nil || idx < 1 {
			return Slot{}, fmt.Errorf("invalid slot index in %q", id)
		}
		return Slot{AlarmID: parts[0], Kind: parts[1], Index: idx}, nil
	}
	return Slot{}, fmt.Errorf("unrecognized slot id %q", id)
}
