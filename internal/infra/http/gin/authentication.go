package ginserver

import (
	"context"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayfinder/internal/app/authz"
)

const actorContextKey = "stayfinder.actor"

// ActorResolver turns a bearer token into a verified caller.
type ActorResolver interface {
	Resolve(ctx context.Context, token string) (authz.Actor, error)
}

type AuthMiddleware struct {
	Resolver ActorResolver
	Logger   *slog.Logger
}

// Handle attaches the caller when a bearer token is present. Requests without
// a token continue anonymously; a bad token is rejected.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Resolver == nil {
		c.Next()
		return
	}
	actor, err := m.Resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token rejected", "error", err)
		}
		respondError(c, m.Logger, err)
		return
	}
	c.Set(actorContextKey, actor)
	c.Next()
}

// currentActor returns the caller or the zero Actor for anonymous requests.
// The command pipeline rejects the zero Actor where a caller is required.
func currentActor(c *gin.Context) authz.Actor {
	val, ok := c.Get(actorContextKey)
	if !ok {
		return authz.Actor{}
	}
	actor, _ := val.(authz.Actor)
	return actor
}

func requireActor(c *gin.Context) (authz.Actor, bool) {
	actor := currentActor(c)
	if !actor.Authenticated() {
		respondError(c, nil, authz.ErrUnauthenticated)
		return authz.Actor{}, false
	}
	return actor, true
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
