package constants

const (
	SettingSnoozeMin            = "snooze_min"
	SettingFollowUpCount        = "follow_up_count"
	SettingFollowUpIntervalMin  = "follow_up_interval_min"
	SettingTrackConfirmation    = "track_confirmation"
	SettingMissedGraceMin       = "missed_grace_min"
	SettingNotificationsEnabled = "notifications_enabled"
	SettingTimezone             = "timezone"

	// Default Settings Values
	DefaultSnoozeMin            = 9
	DefaultFollowUpCount        = 3
	DefaultFollowUpIntervalMin  = 10
	DefaultTrackConfirmation    = true
	DefaultMissedGraceMin       = 30
	DefaultNotificationsEnabled = true
	DefaultTimezone             = "Local" // Use system local timezone by default
)
