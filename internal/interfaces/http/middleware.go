package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/club-expenses/internal/application/service"
	"github.com/garyjia/club-expenses/internal/application/session"
)

const sessionKey = "session"

var (
	errMissingToken   = errors.New("missing session token")
	errSessionLoading = errors.New("session is still loading")
	errSessionClosed  = errors.New("session was closed")
)

// requireSession resolves the bearer token to a live session. Browsers
// cannot set headers on WebSocket handshakes, so the access_token query
// parameter is accepted as well.
func requireSession(sessions SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			writeError(c, errMissingToken)
			c.Abort()
			return
		}

		sess, err := sessions.Lookup(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// waitReady returns the session's read model once it is Ready, waiting up
// to timeout for a loading session.
func waitReady(ctx context.Context, sess *session.Session, timeout time.Duration) (session.ReadModel, error) {
	if m := sess.Model(); m.Ready {
		return m, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for m := range sess.Aggregator.Watch(ctx) {
		if m.Ready {
			return m, nil
		}
	}
	if ctx.Err() != nil {
		return session.ReadModel{}, errSessionLoading
	}
	return session.ReadModel{}, errSessionClosed
}

// actor waits for the session to be Ready and returns the caller as an
// actor with the role resolved at that moment.
func (h *Handlers) actor(c *gin.Context) (service.Actor, session.ReadModel, bool) {
	model, err := waitReady(c.Request.Context(), currentSession(c), h.config.ReadyTimeout)
	if err != nil {
		writeError(c, err)
		return service.Actor{}, model, false
	}

	actor, err := service.NewActor(model.User, model.Role)
	if err != nil {
		writeError(c, err)
		return service.Actor{}, model, false
	}
	return actor, model, true
}
