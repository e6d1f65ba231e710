package model

// BiometricType is the single modality reported to the UI.
type BiometricType string

const (
	BiometricFaceID      BiometricType = "faceId"
	BiometricFingerprint BiometricType = "fingerprint"
	BiometricIris        BiometricType = "iris"
	BiometricNone        BiometricType = "none"
)

// BiometricSupport describes what the device can do right now.
// It is derived fresh on every query and never persisted.
type BiometricSupport struct {
	HasHardware    bool            `json:"has_hardware"`
	IsEnrolled     bool            `json:"is_enrolled"`
	SupportedTypes []BiometricType `json:"supported_types"`
	BiometricType  BiometricType   `json:"biometric_type"`
}

// SecuritySettings is the app-lock configuration, persisted as a single
// encrypted record.
type SecuritySettings struct {
	RequireAuthOnLaunch bool `json:"require_auth_on_launch"`
	SensitiveDataAuth   bool `json:"sensitive_data_auth"`
	AutoLockTimeoutMs   int  `json:"auto_lock_timeout_ms"`
	MaxFailedAttempts   int  `json:"max_failed_attempts"`
}

// DefaultSecuritySettings are applied when nothing (or only part of the
// record) has been stored yet.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		RequireAuthOnLaunch: false,
		SensitiveDataAuth:   false,
		AutoLockTimeoutMs:   5 * 60 * 1000,
		MaxFailedAttempts:   5,
	}
}
