package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/ramonsune/custodia360/internal/observability/context"
)

const (
	draftCookieName        = "c360_draft_sid"
	contextDraftSessionKey = "draft_session"
)

// DraftSession resolves the draft session cookie, issuing a new id when it is
// missing or malformed. The cookie lives as long as the draft retention window.
func (s *Server) DraftSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(draftCookieName)
		if err != nil || !validSessionID(sid) {
			sid = uuid.NewString()
		}
		s.setDraftCookie(c, sid)

		c.Set(contextDraftSessionKey, sid)
		c.Request = c.Request.WithContext(obscontext.WithDraftSession(c.Request.Context(), sid))
		c.Next()
	}
}

func (s *Server) setDraftCookie(c *gin.Context, sid string) {
	maxAge := int(s.cfg.Draft.Retention.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(draftCookieName, sid, maxAge, "/", "", s.cfg.Draft.CookieSecure, true)
}

func validSessionID(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	_, err := uuid.Parse(raw)
	return err == nil
}

func draftSessionID(c *gin.Context) string {
	return c.GetString(contextDraftSessionKey)
}
