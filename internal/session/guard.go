package session

import "github.com/TheFastest599/flowtrack/internal/model"

// Decision is the route guard's verdict for a protected view.
type Decision int

const (
	// Pending means session state has not hydrated yet; render nothing and
	// re-evaluate when it has.
	Pending Decision = iota
	// Allow renders the protected view.
	Allow
	// RedirectLogin sends the user to the login view.
	RedirectLogin
	// RedirectHome sends an authenticated but under-privileged user home.
	RedirectHome
)

// String returns the decision name for logs and tests.
func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	}
	return "unknown"
}

// Evaluate decides whether a protected view may render for the given
// session snapshot. Pure function: presentation and routing stay outside.
// Pending is returned if and only if the store has not hydrated.
func Evaluate(st State, requireAdmin bool) Decision {
	if !st.Hydrated {
		return Pending
	}
	if !st.LoggedIn || st.User == nil {
		return RedirectLogin
	}
	if requireAdmin && st.User.Role != model.RoleAdmin {
		return RedirectHome
	}
	return Allow
}
