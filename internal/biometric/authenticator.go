package biometric

import (
	"context"

	"github.com/dukerupert/focusloop/internal/model"
)

// PromptOptions configures the platform authentication prompt.
type PromptOptions struct {
	Reason              string
	CancelLabel         string
	FallbackLabel       string
	AllowDeviceFallback bool
}

// PromptResult is what the platform prompt reports back.
type PromptResult struct {
	Success bool
	Error   string
	Warning string
}

// Authenticator is the platform biometric API. Implementations bridge to
// the device; tests substitute a fake.
type Authenticator interface {
	HasHardware(ctx context.Context) (bool, error)
	IsEnrolled(ctx context.Context) (bool, error)
	SupportedTypes(ctx context.Context) ([]model.BiometricType, error)
	Prompt(ctx context.Context, opts PromptOptions) (PromptResult, error)
}

// Unsupported is the Authenticator for platforms without biometrics.
// Every capability reads false and the prompt always fails.
type Unsupported struct{}

func (Unsupported) HasHardware(context.Context) (bool, error) { return false, nil }

func (Unsupported) IsEnrolled(context.Context) (bool, error) { return false, nil }

func (Unsupported) SupportedTypes(context.Context) ([]model.BiometricType, error) {
	return nil, nil
}

func (Unsupported) Prompt(context.Context, PromptOptions) (PromptResult, error) {
	return PromptResult{Success: false, Error: "biometric authentication not available"}, nil
}
