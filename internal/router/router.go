package router

import (
	"fmt"
	"strings"

	"farmlink/internal/models"
)

// Well-known client routes.
const (
	WelcomePath    = "/"
	LoginPath      = "/login"
	SignupPath     = "/signup"
	RoleSelectPath = "/role-select"
	TracePrefix    = "/trace/"
)

// DecisionKind is the outcome of a guard check.
type DecisionKind int

const (
	// Suspend means the session is still loading; render nothing yet.
	Suspend DecisionKind = iota
	Allow
	Redirect
)

// Decision is what a guarded route should do. Path is set for Redirect only.
type Decision struct {
	Kind DecisionKind
	Path string
}

func (d Decision) String() string {
	switch d.Kind {
	case Suspend:
		return "suspend"
	case Allow:
		return "allow"
	case Redirect:
		return fmt.Sprintf("redirect %s", d.Path)
	}
	return "unknown"
}

// RoutePrefix is the route tree owned by a role. Roles without one get "/".
func RoutePrefix(role models.Role) string {
	switch role {
	case models.RoleFarmer:
		return "/farmer"
	case models.RoleConsumer:
		return "/consumer"
	case models.RoleAdmin:
		return "/admin"
	case models.RoleNone:
		return WelcomePath
	}
	return WelcomePath
}

// LandingRoute is where a session goes after sign-in or a mis-scoped navigation.
func LandingRoute(sess models.Session) string {
	if !sess.IsAuthenticated {
		return WelcomePath
	}
	return RoutePrefix(sess.Role)
}

// Guard decides access to a route requiring one of the roles. It has no side
// effects, so repeated calls with the same session agree.
func Guard(required []models.Role, sess models.Session) Decision {
	if sess.Loading {
		return Decision{Kind: Suspend}
	}
	if !sess.IsAuthenticated {
		return Decision{Kind: Redirect, Path: LoginPath}
	}
	for _, r := range required {
		if r == sess.Role {
			return Decision{Kind: Allow}
		}
	}
	return Decision{Kind: Redirect, Path: LandingRoute(sess)}
}

// guarded lists the role-owned route trees. Admins may also work the farmer tree.
var guarded = []struct {
	prefix string
	roles  []models.Role
}{
	{"/farmer", []models.Role{models.RoleFarmer, models.RoleAdmin}},
	{"/consumer", []models.Role{models.RoleConsumer}},
	{"/admin", []models.Role{models.RoleAdmin}},
}

// RequiredRoles returns the roles allowed on a path. ok is false for public
// paths, which need no session. The HTTP API guards its groups with the same table.
func RequiredRoles(path string) (roles []models.Role, ok bool) {
	for _, g := range guarded {
		if path == g.prefix || strings.HasPrefix(path, g.prefix+"/") {
			return append([]models.Role(nil), g.roles...), true
		}
	}
	return nil, false
}

// Check applies Guard to a path, allowing public paths outright.
func Check(path string, sess models.Session) Decision {
	required, ok := RequiredRoles(path)
	if !ok {
		return Decision{Kind: Allow}
	}
	return Guard(required, sess)
}
