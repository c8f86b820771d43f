package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
)

type checkoutRequest struct {
	Method      string `json:"method" binding:"max=64"`
	HolderName  string `json:"holderName" binding:"max=200"`
	AcceptTerms bool   `json:"acceptTerms"`
}

type checkoutReturnQuery struct {
	Status string `form:"status" binding:"required,oneof=success cancelled failed"`
}

func (s *Server) BeginOnboarding(c *gin.Context) {
	resp, err := s.onboarding.Begin(c.Request.Context(), draftSessionID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateDraft(c *gin.Context) {
	var patch domain.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.onboarding.Update(c.Request.Context(), draftSessionID(c), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// FlushDraft serves the page-unload beacon. Beacons may carry the latest form
// state as a text/plain JSON body.
func (s *Server) FlushDraft(c *gin.Context) {
	ctx := c.Request.Context()
	sid := draftSessionID(c)

	if c.Request.ContentLength != 0 {
		var patch domain.DraftPatch
		if err := c.ShouldBindWith(&patch, binding.JSON); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		if _, err := s.onboarding.Update(ctx, sid, patch); err != nil && !errors.Is(err, domain.ErrAlreadySubmitted) {
			AbortWithError(c, err)
			return
		}
	}

	if err := s.onboarding.Flush(ctx, sid); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) EnterStep(c *gin.Context) {
	state, ok := domain.ParseStep(strings.TrimSpace(c.Param("step")))
	if !ok {
		AbortWithError(c, domain.ErrInvalidStep)
		return
	}

	resp, err := s.onboarding.Navigate(c.Request.Context(), draftSessionID(c), state)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SubmitEntity(c *gin.Context) {
	var patch domain.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.onboarding.SubmitEntity(c.Request.Context(), draftSessionID(c), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SubmitDelegate(c *gin.Context) {
	var patch domain.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.onboarding.SubmitDelegate(c.Request.Context(), draftSessionID(c), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetQuote(c *gin.Context) {
	resp, err := s.onboarding.Quote(c.Request.Context(), draftSessionID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StartCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	payment := domain.PaymentDetails{
		Method:      strings.TrimSpace(req.Method),
		HolderName:  strings.TrimSpace(req.HolderName),
		AcceptTerms: req.AcceptTerms,
	}
	resp, err := s.onboarding.Checkout(c.Request.Context(), draftSessionID(c), payment, s.returnBaseURL(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CheckoutReturn(c *gin.Context) {
	var query checkoutReturnQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.onboarding.Return(c.Request.Context(), draftSessionID(c), domain.ReturnStatus(query.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// returnBaseURL prefers the configured public URL over the request origin.
// X-Forwarded-* headers count only when the peer is a trusted proxy.
func (s *Server) returnBaseURL(c *gin.Context) string {
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	host := c.Request.Host
	if !s.fromTrustedProxy(c) {
		return scheme + "://" + host
	}

	if proto := strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")); proto != "" {
		scheme = strings.ToLower(strings.Split(proto, ",")[0])
	}

	if fwd := strings.TrimSpace(c.GetHeader("X-Forwarded-Host")); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}
