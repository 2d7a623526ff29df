package settings

import (
	"fmt"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	SnoozeMin            *int    `help:"Snooze duration in minutes."`
	FollowUpCount        *int    `help:"Follow-up reminders sent while an alarm awaits confirmation."`
	FollowUpIntervalMin  *int    `help:"Default minutes between follow-ups for new alarms."`
	TrackConfirmation    *bool   `help:"Ask for confirmation after an alarm fires."`
	MissedGraceMin       *int    `help:"Minutes an occurrence may go unhandled before it is recorded as missed."`
	NotificationsEnabled *bool   `help:"Enable or disable tray notifications."`
	Timezone             *string `help:"Default timezone for new alarms (IANA name or Local)."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		fmt.Println("Alarm Settings:")
		fmt.Printf("  Snooze:                %d min\n", settings.SnoozeMin)
		fmt.Printf("  Missed Grace:          %d min\n", settings.MissedGraceMin)
		fmt.Printf("  Timezone:              %s\n", settings.Timezone)
		fmt.Println("\nConfirmation Settings:")
		fmt.Printf("  Track Confirmation:    %v\n", settings.TrackConfirmation)
		fmt.Printf("  Follow-up Count:       %d\n", settings.FollowUpCount)
		fmt.Printf("  Follow-up Interval:    %d min\n", settings.FollowUpIntervalMin)
		fmt.Println("\nNotification Settings:")
		fmt.Printf("  Notifications Enabled: %v\n", settings.NotificationsEnabled)
		return nil
	}

	updated := false
	if c.SnoozeMin != nil {
		if *c.SnoozeMin <= 0 {
			return fmt.Errorf("snooze must be at least 1 minute")
		}
		settings.SnoozeMin = *c.SnoozeMin
		updated = true
	}
	if c.FollowUpCount != nil {
		if *c.FollowUpCount < 0 {
			return fmt.Errorf("follow-up count cannot be negative")
		}
		settings.FollowUpCount = *c.FollowUpCount
		updated = true
	}
	if c.FollowUpIntervalMin != nil {
		if *c.FollowUpIntervalMin <= 0 {
			return fmt.Errorf("follow-up interval must be at least 1 minute")
		}
		settings.FollowUpIntervalMin = *c.FollowUpIntervalMin
		updated = true
	}
	if c.TrackConfirmation != nil {
		settings.TrackConfirmation = *c.TrackConfirmation
		updated = true
	}
	if c.MissedGraceMin != nil {
		if *c.MissedGraceMin <= 0 {
			return fmt.Errorf("missed grace must be at least 1 minute")
		}
		settings.MissedGraceMin = *c.MissedGraceMin
		updated = true
	}
	if c.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *c.NotificationsEnabled
		updated = true
	}
	if c.Timezone != nil {
		if !utils.ValidateTimezone(*c.Timezone) {
			return fmt.Errorf("invalid timezone %q", *c.Timezone)
		}
		settings.Timezone = *c.Timezone
		updated = true
	}

	if updated {
		if err := ctx.Store.SaveSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		fmt.Println("Settings updated successfully.")
		fmt.Println("A running daemon picks up the new values when restarted.")
	} else {
		fmt.Println("No changes specified. Use --list to view settings or flags to update them.")
	}

	return nil
}
