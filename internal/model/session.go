package model

// Session is a point-in-time view of the session store.
// User is non-nil only after a successful profile fetch for Token.
type Session struct {
	Token     string
	User      *UserProfile
	Restoring bool
}

// Authenticated reports whether a user profile is loaded.
func (s Session) Authenticated() bool {
	return s.User != nil
}
