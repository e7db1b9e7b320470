package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"meudinheiro/internal/app"
	"meudinheiro/internal/cache"
	"meudinheiro/internal/log"
	"meudinheiro/internal/metrics"
)

const (
	// SessionCookie names the cookie carrying the session id.
	SessionCookie = "md_session"
	// ClientCookie identifies the browser across sessions and restarts.
	ClientCookie = "md_client"

	clientCookieMaxAge = 365 * 24 * 60 * 60
)

// sessionStore keeps one controller per browser session. Idle sessions
// expire after the TTL; an expired or evicted controller is closed, which
// drops its pending save.
type sessionStore struct {
	controllers *cache.LRUCache[*app.Controller]
	newCtrl     func() *app.Controller
	ttl         time.Duration
	metrics     *metrics.Metrics
	logger      *log.Logger
}

func newSessionStore(newCtrl func() *app.Controller, maxSessions int, ttl time.Duration, m *metrics.Metrics, logger *log.Logger) *sessionStore {
	s := &sessionStore{newCtrl: newCtrl, ttl: ttl, metrics: m, logger: logger}
	s.controllers = cache.NewLRUCache[*app.Controller](maxSessions, ttl,
		cache.WithSlidingExpiry[*app.Controller](),
		cache.WithOnEvict(func(id string, c *app.Controller) {
			c.Close()
			s.logger.Debug("Session closed", log.FieldSessionID, id)
			s.metrics.SetActiveSessions(s.controllers.Size())
		}))
	return s
}

// controllerFor returns the controller of the request's session, creating
// the session and setting the cookie when there is none.
func (s *sessionStore) controllerFor(w http.ResponseWriter, r *http.Request) (*app.Controller, string) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if ctrl, ok := s.controllers.Get(c.Value); ok {
			return ctrl, c.Value
		}
	}

	id := uuid.NewString()
	ctrl := s.newCtrl()
	s.controllers.Set(id, ctrl)
	s.metrics.SetActiveSessions(s.controllers.Size())

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.DebugContext(r.Context(), "Session created", log.FieldSessionID, id)
	return ctrl, id
}

// closeAll closes every live controller.
func (s *sessionStore) closeAll() {
	for _, id := range s.controllers.Keys() {
		s.controllers.Delete(id)
	}
}

// clientID returns the browser's long-lived id, issuing one when the
// request carries none.
func clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ClientCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   clientCookieMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
