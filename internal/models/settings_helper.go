package models

import (
	"fmt"

	"github.com/julianstephens/chime/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a Settings struct.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{}

	for key, value := range data {
		switch key {
		case constants.SettingSnoozeMin:
			if _, err := fmt.Sscanf(value, "%d", &settings.SnoozeMin); err != nil {
				return Settings{}, fmt.Errorf("parsing snooze_min: %w", err)
			}
		case constants.SettingFollowUpCount:
			if _, err := fmt.Sscanf(value, "%d", &settings.FollowUpCount); err != nil {
				return Settings{}, fmt.Errorf("parsing follow_up_count: %w", err)
			}
		case constants.SettingFollowUpIntervalMin:
			if _, err := fmt.Sscanf(value, "%d", &settings.FollowUpIntervalMin); err != nil {
				return Settings{}, fmt.Errorf("parsing follow_up_interval_min: %w", err)
			}
		case constants.SettingMissedGraceMin:
			if _, err := fmt.Sscanf(value, "%d", &settings.MissedGraceMin); err != nil {
				return Settings{}, fmt.Errorf("parsing missed_grace_min: %w", err)
			}
		case constants.SettingTrackConfirmation:
			settings.TrackConfirmation = value == "true"
		case constants.SettingNotificationsEnabled:
			settings.NotificationsEnabled = value == "true"
		case constants.SettingTimezone:
			settings.Timezone = value
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingSnoozeMin:            fmt.Sprintf("%d", settings.SnoozeMin),
		constants.SettingFollowUpCount:        fmt.Sprintf("%d", settings.FollowUpCount),
		constants.SettingFollowUpIntervalMin:  fmt.Sprintf("%d", settings.FollowUpIntervalMin),
		constants.SettingTrackConfirmation:    fmt.Sprintf("%v", settings.TrackConfirmation),
		constants.SettingMissedGraceMin:       fmt.Sprintf("%d", settings.MissedGraceMin),
		constants.SettingNotificationsEnabled: fmt.Sprintf("%v", settings.NotificationsEnabled),
		constants.SettingTimezone:             settings.Timezone,
	}
}

// DefaultSettings returns the settings written by init.
func DefaultSettings() Settings {
	s := Settings{
		FollowUpCount:        constants.DefaultFollowUpCount,
		TrackConfirmation:    constants.DefaultTrackConfirmation,
		NotificationsEnabled: constants.DefaultNotificationsEnabled,
	}
	ApplyDefaultSettings(&s)
	return s
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.SnoozeMin <= 0 {
		settings.SnoozeMin = constants.DefaultSnoozeMin
	}
	if settings.FollowUpCount < 0 {
		settings.FollowUpCount = constants.DefaultFollowUpCount
	}
	if settings.FollowUpIntervalMin <= 0 {
		settings.FollowUpIntervalMin = constants.DefaultFollowUpIntervalMin
	}
	if settings.MissedGraceMin <= 0 {
		settings.MissedGraceMin = constants.DefaultMissedGraceMin
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
}
