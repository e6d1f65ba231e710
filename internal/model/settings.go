package model

// PomodoroSettings holds the focus-timer parameters. Durations are minutes.
type PomodoroSettings struct {
	WorkDuration            int  `json:"work_duration"`
	BreakDuration           int  `json:"break_duration"`
	LongBreakDuration       int  `json:"long_break_duration"`
	SessionsBeforeLongBreak int  `json:"sessions_before_long_break"`
	AutoStartBreaks         bool `json:"auto_start_breaks"`
	AutoStartWork           bool `json:"auto_start_work"`
	BreakReminders          bool `json:"break_reminders"`
}

// AppSettings is the full user-settings document. It is always persisted
// and rewritten as one unit.
type AppSettings struct {
	Pomodoro              PomodoroSettings `json:"pomodoro"`
	SoundEnabled          bool             `json:"sound_enabled"`
	HapticsEnabled        bool             `json:"haptics_enabled"`
	VisibleTaskLimit      int              `json:"visible_task_limit"`
	CelebrationAnimations bool             `json:"celebration_animations"`
}

// DefaultAppSettings returns the compiled-in defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Pomodoro: PomodoroSettings{
			WorkDuration:            25,
			BreakDuration:           5,
			LongBreakDuration:       15,
			SessionsBeforeLongBreak: 4,
			AutoStartBreaks:         false,
			AutoStartWork:           false,
			BreakReminders:          true,
		},
		SoundEnabled:          true,
		HapticsEnabled:        true,
		VisibleTaskLimit:      5,
		CelebrationAnimations: true,
	}
}
