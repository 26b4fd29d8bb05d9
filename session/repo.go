package session

import "context"

// Repo is the durable token store. It holds at most one session.
type Repo interface {
	// Get returns the stored session, or nil with no error when logged out
	Get(ctx context.Context) (*Session, error)

	// Upsert replaces the stored session
	Upsert(ctx context.Context, s *Session) error

	// Delete removes the stored session; deleting an absent session is not an error
	Delete(ctx context.Context) error
}
