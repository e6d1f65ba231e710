// Package biometric implements the app lock: capability queries, the
// authentication prompt, and the failed-attempt lockout counter kept in
// the encrypted store. There is no stored lock state — locked/unlocked is
// derived from the counter against the configured maximum on every check.
package biometric

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/focusloop/internal/model"
	"github.com/dukerupert/focusloop/internal/securestore"
)

const (
	settingsKey      = "security.settings"
	counterKey       = "security.failed_attempts"
	lastSuccessKey   = "security.last_auth_success"
	launchAuthKey    = "security.launch_auth_enabled"
	sensitiveAuthKey = "security.sensitive_data_auth_enabled"

	defaultReason = "Unlock Focusloop"
)

// AuthResult reports the outcome of an authentication prompt. Error and
// Warning carry the platform's text when the prompt did not succeed.
type AuthResult struct {
	Success bool
	Error   string
	Warning string
}

// Gate is the app-lock service.
type Gate struct {
	auth   Authenticator
	secure *securestore.Adapter
	logger *slog.Logger
	now    func() time.Time
}

// NewGate creates a Gate over the platform authenticator and the
// encrypted store.
func NewGate(auth Authenticator, secure *securestore.Adapter, logger *slog.Logger) *Gate {
	return &Gate{auth: auth, secure: secure, logger: logger, now: time.Now}
}

// CheckSupport queries hardware presence, enrollment, and the supported
// modality set. Any platform failure yields the safe all-false default
// instead of an error.
func (g *Gate) CheckSupport(ctx context.Context) model.BiometricSupport {
	none := model.BiometricSupport{BiometricType: model.BiometricNone}

	hasHardware, err := g.auth.HasHardware(ctx)
	if err != nil {
		g.logger.Warn("biometric hardware query failed", "code", "support_query", "error", err)
		return none
	}
	enrolled, err := g.auth.IsEnrolled(ctx)
	if err != nil {
		g.logger.Warn("biometric enrollment query failed", "code", "support_query", "error", err)
		return none
	}
	types, err := g.auth.SupportedTypes(ctx)
	if err != nil {
		g.logger.Warn("biometric type query failed", "code", "support_query", "error", err)
		return none
	}

	return model.BiometricSupport{
		HasHardware:    hasHardware,
		IsEnrolled:     enrolled,
		SupportedTypes: types,
		BiometricType:  primaryType(types),
	}
}

// primaryType maps a modality set to the single reported type. Facial
// recognition wins over fingerprint, fingerprint over iris.
func primaryType(types []model.BiometricType) model.BiometricType {
	for _, want := range []model.BiometricType{
		model.BiometricFaceID,
		model.BiometricFingerprint,
		model.BiometricIris,
	} {
		for _, t := range types {
			if t == want {
				return want
			}
		}
	}
	return model.BiometricNone
}

// Authenticate runs the platform prompt. On success it records the
// timestamp and clears the failed-attempt counter. It never increments
// the counter itself; callers decide when a failure counts by calling
// RecordFailedAttempt.
func (g *Gate) Authenticate(ctx context.Context, reason string) AuthResult {
	if reason == "" {
		reason = defaultReason
	}

	result, err := g.auth.Prompt(ctx, PromptOptions{
		Reason:              reason,
		CancelLabel:         "Cancel",
		FallbackLabel:       "Use passcode",
		AllowDeviceFallback: true,
	})
	if err != nil {
		g.logger.Warn("biometric prompt errored", "code", "prompt_error", "error", err)
		return AuthResult{Success: false, Error: "Authentication failed"}
	}
	if !result.Success {
		return AuthResult{Success: false, Error: result.Error, Warning: result.Warning}
	}

	if err := g.secure.Set(lastSuccessKey, g.now().UTC().Format(time.RFC3339)); err != nil {
		g.logger.Warn("record auth success failed", "code", "record_success", "error", err)
	}
	g.ResetFailedAttempts()

	return AuthResult{Success: true}
}

// RecordFailedAttempt increments and persists the failed-attempt counter,
// returning the new value. A persistence failure returns 1 as the
// conservative fallback.
func (g *Gate) RecordFailedAttempt() int {
	count, err := g.failedAttempts()
	if err != nil {
		g.logger.Warn("read failed-attempt counter", "code", "counter_read", "error", err)
		return 1
	}
	count++
	if err := g.secure.Set(counterKey, count); err != nil {
		g.logger.Warn("persist failed-attempt counter", "code", "counter_write", "error", err)
		return 1
	}
	return count
}

// ResetFailedAttempts deletes the counter. Failure is logged, not
// surfaced; a stale counter only makes the lock stricter.
func (g *Gate) ResetFailedAttempts() {
	if err := g.secure.Remove(counterKey); err != nil {
		g.logger.Warn("reset failed-attempt counter", "code", "counter_reset", "error", err)
	}
}

// Locked reports whether the failed-attempt counter has reached the
// configured maximum. Any internal failure reads as unlocked.
func (g *Gate) Locked() bool {
	count, err := g.failedAttempts()
	if err != nil {
		g.logger.Warn("lock check failed", "code", "lock_check", "error", err)
		return false
	}
	return count >= g.SecuritySettings().MaxFailedAttempts
}

// SecuritySettings returns the stored settings merged over defaults.
func (g *Gate) SecuritySettings() model.SecuritySettings {
	settings := model.DefaultSecuritySettings()

	stored, err := g.secure.Get(settingsKey)
	if err != nil {
		g.logger.Warn("load security settings", "code", "settings_read", "error", err)
		return settings
	}
	if stored == nil {
		return settings
	}
	if err := decodeInto(stored, &settings); err != nil {
		g.logger.Warn("decode security settings", "code", "settings_decode", "error", err)
		return model.DefaultSecuritySettings()
	}
	return settings
}

// SetupAppSecurity persists the settings and, for each enabled auth
// requirement, a dedicated boolean flag. Unlike the lock-state helpers,
// failure here is surfaced: the caller must know the lock did not arm.
func (g *Gate) SetupAppSecurity(settings model.SecuritySettings) error {
	if err := g.secure.Set(settingsKey, settings); err != nil {
		return fmt.Errorf("persist security settings: %w", err)
	}
	if settings.RequireAuthOnLaunch {
		if err := g.secure.Set(launchAuthKey, true); err != nil {
			return fmt.Errorf("persist launch-auth flag: %w", err)
		}
	}
	if settings.SensitiveDataAuth {
		if err := g.secure.Set(sensitiveAuthKey, true); err != nil {
			return fmt.Errorf("persist sensitive-data-auth flag: %w", err)
		}
	}
	return nil
}

// failedAttempts reads the counter; absence reads as zero.
func (g *Gate) failedAttempts() (int, error) {
	stored, err := g.secure.Get(counterKey)
	if err != nil {
		return 0, err
	}
	if stored == nil {
		return 0, nil
	}
	n, ok := stored.(float64)
	if !ok {
		return 0, fmt.Errorf("counter has unexpected type %T", stored)
	}
	return int(n), nil
}

// decodeInto re-marshals a decoded JSON value into a typed destination.
func decodeInto(v any, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
