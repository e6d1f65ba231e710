package settings

// Validators for the numeric settings ranges. Callers are expected to
// check before mutating; the store itself does not enforce them.
// All bounds are inclusive.

// ValidateWorkDuration accepts 5–90 minutes.
func ValidateWorkDuration(minutes int) bool {
	return minutes >= 5 && minutes <= 90
}

// ValidateBreakDuration accepts 1–30 minutes.
func ValidateBreakDuration(minutes int) bool {
	return minutes >= 1 && minutes <= 30
}

// ValidateLongBreakDuration accepts 10–60 minutes.
func ValidateLongBreakDuration(minutes int) bool {
	return minutes >= 10 && minutes <= 60
}

// ValidateTaskLimit accepts 3–10 visible tasks.
func ValidateTaskLimit(limit int) bool {
	return limit >= 3 && limit <= 10
}
