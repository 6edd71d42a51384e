package session

import "strings"

// Navigation targets used when the backend invalidates the session.
const (
	LoginPath           = "/login"
	SuperadminLoginPath = "/superadmin/login"
	SuperadminPrefix    = "/superadmin"
)

// Navigator moves the user to another surface.
// Location reports where the user currently is; Redirect must tolerate
// being called several times with the same target.
type Navigator interface {
	Location() string
	Redirect(target string)
}

// LoginTarget returns the login surface for the given location: the
// superadmin login inside the privileged area, the standard login elsewhere.
func LoginTarget(location string) string {
	if strings.HasPrefix(location, SuperadminPrefix) {
		return SuperadminLoginPath
	}
	return LoginPath
}

// nopNavigator is used when no Navigator is provided.
type nopNavigator struct{}

func (nopNavigator) Location() string { return "" }
func (nopNavigator) Redirect(string)  {}
