package ports

import (
	"context"

	"rillcast/internal/core/domain"
)

// PermissionResponse is what the OS permission subsystem reports.
type PermissionResponse struct {
	Granted     bool
	CanAskAgain bool
}

type PermissionProvider interface {
	// Query reads the current grant without prompting.
	Query(ctx context.Context, capability domain.Capability) (PermissionResponse, error)
	// Request prompts the user when prompting is still possible.
	Request(ctx context.Context, capability domain.Capability) (PermissionResponse, error)
}

// SettingsOpener tells the user how to change a permanently denied permission.
type SettingsOpener interface {
	OpenSettings(ctx context.Context)
}

type IdentityProvider interface {
	SignIn(ctx context.Context) (*domain.User, error)
	SignOut(ctx context.Context) error
}
