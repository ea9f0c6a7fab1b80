package remote

import "time"

// Project is a row of the projects table. Local copies are read-only caches.
type Project struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Image     string    `json:"image"`
	Rating    float64   `json:"rating"`
	Category  *string   `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
}

// Featured reports whether the project carries the "featured" tag.
func (p Project) Featured() bool {
	return p.Category != nil && *p.Category == "featured"
}

// NewProject is the insert payload for the projects table.
type NewProject struct {
	Title    string  `json:"title"`
	Link     string  `json:"link"`
	Image    string  `json:"image"`
	Rating   float64 `json:"rating"`
	Category *string `json:"category,omitempty"`
	UserID   string  `json:"user_id"`
}

// Profile is a row of the profiles table. Its id equals the auth user id.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileUpdate carries the optional columns of a profile update.
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil
}

// User is the identity known to the auth service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserAttributes are the identity fields that can be changed by the user.
type UserAttributes struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Session is the authenticated context handed out by the auth service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SignUpResult is returned by Auth.SignUp. Session is nil when the backend
// requires email confirmation before the first sign in.
type SignUpResult struct {
	User    User
	Session *Session
}

// AuthEventKind names a session change.
type AuthEventKind string

const (
	EventInitialSession AuthEventKind = "INITIAL_SESSION"
	EventSignedIn       AuthEventKind = "SIGNED_IN"
	EventSignedOut      AuthEventKind = "SIGNED_OUT"
	EventTokenRefreshed AuthEventKind = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventKind = "USER_UPDATED"
)

// AuthEvent is a session-change notification. Session is nil after sign out.
type AuthEvent struct {
	Kind    AuthEventKind `json:"kind"`
	Session *Session      `json:"session,omitempty"`
}

// User returns the user carried by the event, if any.
func (e AuthEvent) User() *User {
	if e.Session == nil {
		return nil
	}
	u := e.Session.User
	return &u
}

// Table names of the remote store.
const (
	TableProjects = "projects"
	TableProfiles = "profiles"
)
