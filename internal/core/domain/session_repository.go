package domain

import "context"

// SessionRow represents a token joined with its owner user,
// returned by token lookup queries.
type SessionRow struct {
	UserID int
	Name   string
	Email  string
}

// SessionRepository defines the data-access contract for bearer-token
// operations. Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Replace deletes every existing token owned by the user and inserts the
	// new one, inside a single transaction. This is the single-session
	// policy: the most recent login wins.
	Replace(ctx context.Context, userID int, token string) error

	// GetUserByToken looks up the token and returns the associated user data.
	// Returns (nil, nil) when the token does not match any row.
	GetUserByToken(ctx context.Context, token string) (*SessionRow, error)

	// DeleteByToken revokes the given token. Returns false when no row
	// matched, which callers treat as an already-revoked token.
	DeleteByToken(ctx context.Context, token string) (bool, error)
}
