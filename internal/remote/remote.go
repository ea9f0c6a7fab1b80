// Package remote describes the contract of the managed backend the application
// is built on: an auth service, two tables and a channel of row inserts.
package remote

import "context"

// Auth is the authentication sub-interface of the backend.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
}

// Projects is the projects table. An empty access token means anonymous access.
type Projects interface {
	// List returns every project ordered by created_at descending.
	List(ctx context.Context, accessToken string) ([]Project, error)
	Insert(ctx context.Context, accessToken string, p NewProject) (*Project, error)
	// DeleteByUser removes all projects owned by userID and returns how many were removed.
	DeleteByUser(ctx context.Context, accessToken, userID string) (int, error)
}

// Profiles is the profiles table, addressed by id.
type Profiles interface {
	Get(ctx context.Context, accessToken, id string) (*Profile, error)
	Insert(ctx context.Context, accessToken string, p Profile) error
	Update(ctx context.Context, accessToken, id string, u ProfileUpdate) error
	Delete(ctx context.Context, accessToken, id string) error
}

// Subscription delivers pushed rows until it is closed or the transport fails.
type Subscription interface {
	Events() <-chan Project
	// Err yields at most one transport error, after which Events is closed.
	Err() <-chan error
	Close() error
}

// Channel is the publish/subscribe sub-interface for row inserts.
type Channel interface {
	SubscribeInserts(ctx context.Context, table string) (Subscription, error)
}

// Backend bundles the sub-interfaces of one backend.
type Backend struct {
	Auth     Auth
	Projects Projects
	Profiles Profiles
	Channel  Channel
}
