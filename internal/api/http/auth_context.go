package httpapi

import (
	"context"
	"strconv"

	"github.com/tradepost/tradepost/internal/domain/principal"
)

type contextKey string

const authContextKey contextKey = "authPrincipal"

// AuthUser is the authenticated dashboard principal attached to the
// request context by requireAuth.
type AuthUser struct {
	PrincipalID int64
	Username    string
	Role        principal.Role
}

// ActorString renders the principal for log lines.
func (a *AuthUser) ActorString() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	return strconv.FormatInt(a.PrincipalID, 10)
}

func withAuthUser(ctx context.Context, u *AuthUser) context.Context {
	return context.WithValue(ctx, authContextKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	u, _ := ctx.Value(authContextKey).(*AuthUser)
	return u
}
