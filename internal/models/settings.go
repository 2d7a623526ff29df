package models

// Settings represents application-wide settings
type Settings struct {
	SnoozeMin            int    `json:"snooze_min"`             // snooze duration in minutes
	FollowUpCount        int    `json:"follow_up_count"`        // follow-up reminders per pending confirmation
	FollowUpIntervalMin  int    `json:"follow_up_interval_min"` // default follow-up spacing for new alarms
	TrackConfirmation    bool   `json:"track_confirmation"`     // route fired alarms through pending confirmation
	MissedGraceMin       int    `json:"missed_grace_min"`       // how late an unhandled occurrence may be before it is missed
	NotificationsEnabled bool   `json:"notifications_enabled"`  // whether the daemon posts tray notifications
	Timezone             string `json:"timezone"`               // IANA timezone name, or "Local" for system timezone
}
