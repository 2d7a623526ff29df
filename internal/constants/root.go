package constants

import "time"

const (
	AppName             = "chime"
	DefaultKeyringUser  = "database-connection"
	DefaultConfigPath   = "~/.config/chime/chime.db"
	DefaultDaemonConfig = "~/.config/chime/daemon.yaml"
	Version             = "v0.3.0"

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "chime-notifier.lock"
	NotificationDurationMs = 8000
	TrayAppIdentifier      = "com.julianstephens.chime"

	// Slot kinds used in platform scheduler ids
	SlotKindAlarm    = "alarm"
	SlotKindSnooze   = "snooze"
	SlotKindFollowUp = "followup"
)
