package wizard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchpad/student-portal/onboarding-backend/internal/auth"
	"launchpad/student-portal/onboarding-backend/internal/connections"
	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// Handler handles HTTP requests for the onboarding wizard
type Handler struct {
	nav       *Navigator
	providers map[string]connections.Provider
	logger    *zap.Logger
}

// NewHandler creates a new wizard handler
func NewHandler(nav *Navigator, providers []connections.Provider, logger *zap.Logger) *Handler {
	byName := make(map[string]connections.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Handler{nav: nav, providers: byName, logger: logger}
}

// RegisterRoutes registers onboarding routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	onboarding := router.Group("/onboarding")
	{
		onboarding.GET("/state", h.getState)
		onboarding.GET("/steps", h.getSteps)
		onboarding.GET("/prime", h.prime)

		onboarding.POST("/start", h.start)
		onboarding.POST("/next", h.next)
		onboarding.POST("/prev", h.prev)
		onboarding.PUT("/step", h.goToStep)
		onboarding.POST("/steps/:stepId/complete", h.completeStep)
		onboarding.POST("/validate", h.validate)

		onboarding.GET("/connections", h.getConnections)
		onboarding.POST("/connect/:provider", h.connectProvider)
		onboarding.POST("/linkedin/callback", h.linkedinCallback)
		onboarding.POST("/linkedin/retry", h.linkedinRetry)

		onboarding.POST("/finish", h.finish)
		onboarding.POST("/abandon", h.abandon)
	}
}

// getState handles GET /api/v1/onboarding/state
func (h *Handler) getState(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	state, err := h.nav.State(c.Request.Context(), session.UserID)
	if err != nil {
		h.logger.Error("Failed to load wizard state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":    state,
		"location": h.nav.Location(session.UserID),
	})
}

// getSteps handles GET /api/v1/onboarding/steps
func (h *Handler) getSteps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"steps":       steps.All(),
		"total_steps": steps.TotalSteps,
	})
}

// prime handles GET /api/v1/onboarding/prime. The client forwards its
// current query string; the response carries the primed state plus the query
// it should rewrite the address bar to (step stripped, everything else
// preserved).
func (h *Handler) prime(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	state, remaining, err := h.nav.PrimeFromQuery(c.Request.Context(), session.UserID, c.Request.URL.Query())
	if err != nil {
		h.logger.Error("Failed to prime wizard from URL", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state": state,
		"query": remaining.Encode(),
	})
}

// start handles POST /api/v1/onboarding/start
func (h *Handler) start(c *gin.Context) {
	h.transition(c, h.nav.HandleGetStarted)
}

// next handles POST /api/v1/onboarding/next
func (h *Handler) next(c *gin.Context) {
	h.transition(c, h.nav.NextStep)
}

// prev handles POST /api/v1/onboarding/prev
func (h *Handler) prev(c *gin.Context) {
	h.transition(c, h.nav.PrevStep)
}

// goToStep handles PUT /api/v1/onboarding/step
func (h *Handler) goToStep(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Step int `json:"step"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.nav.GoToStep(c.Request.Context(), session.UserID, req.Step)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":    state,
		"location": h.nav.Location(session.UserID),
	})
}

// completeStep handles POST /api/v1/onboarding/steps/:stepId/complete. The
// step's validation rule runs against the submitted form data and the live
// connection status; only a passing step is marked complete.
func (h *Handler) completeStep(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	stepID := steps.ID(c.Param("stepId"))
	if !steps.IsCompletable(stepID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown step"})
		return
	}

	var form FormData
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conns := connections.Resolve(session, c.Request.Cookies())
	result := Validate(form, conns, stepID)
	if !result.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": result.Errors})
		return
	}

	state, err := h.nav.MarkStepComplete(c.Request.Context(), session.UserID, stepID)
	if err != nil {
		h.logger.Error("Failed to mark step complete",
			zap.String("step", string(stepID)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

// validate handles POST /api/v1/onboarding/validate
func (h *Handler) validate(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var form FormData
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conns := connections.Resolve(session, c.Request.Cookies())
	c.JSON(http.StatusOK, gin.H{"results": ValidateAll(form, conns)})
}

// getConnections handles GET /api/v1/onboarding/connections. Once the
// session itself carries the LinkedIn link, the fallback cookie has served
// its purpose and is expired here so it cannot be re-applied.
func (h *Handler) getConnections(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	status := connections.Resolve(session, c.Request.Cookies())

	if session.LinkedAccountID != "" {
		if _, err := c.Request.Cookie(connections.FallbackCookieName); err == nil {
			c.SetCookie(connections.FallbackCookieName, "", -1, "/", "", false, true)
		}
	}

	c.JSON(http.StatusOK, status)
}

// connectProvider handles POST /api/v1/onboarding/connect/:provider. A
// synchronous provider failure surfaces as a one-shot message; wizard state
// is left untouched so the user can retry.
func (h *Handler) connectProvider(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	authURL, err := provider.AuthURL(session.UserID.String())
	if err != nil {
		h.logger.Error("Provider sign-in failed",
			zap.String("provider", provider.Name()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Sign-in failed. Please try again."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// linkedinCallback handles POST /api/v1/onboarding/linkedin/callback. The
// callback signal is consumed exactly once per user even if the wizard page
// mounts twice in quick succession.
func (h *Handler) linkedinCallback(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if !h.nav.ConsumeLinkedInCallback(session.UserID) {
		c.JSON(http.StatusOK, gin.H{"processed": false})
		return
	}

	outcome := c.Query("linkedin")
	if outcome == "error" {
		c.JSON(http.StatusOK, gin.H{
			"processed": true,
			"error":     "LinkedIn sign-in failed. Please try again.",
		})
		return
	}

	status := connections.Resolve(session, c.Request.Cookies())
	c.JSON(http.StatusOK, gin.H{
		"processed":   true,
		"connections": status,
	})
}

// linkedinRetry handles POST /api/v1/onboarding/linkedin/retry
func (h *Handler) linkedinRetry(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	h.nav.RetryLinkedInCallback(session.UserID)
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// finish handles POST /api/v1/onboarding/finish
func (h *Handler) finish(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := h.nav.CompleteFlow(c.Request.Context(), session.UserID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// abandon handles POST /api/v1/onboarding/abandon
func (h *Handler) abandon(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := h.nav.Abandon(c.Request.Context(), session.UserID); err != nil {
		h.logger.Error("Failed to abandon wizard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
}

// transition runs a navigator transition and responds with the new state.
func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, userID uuid.UUID) (State, error)) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	state, err := fn(c.Request.Context(), session.UserID)
	if err != nil {
		h.logger.Error("Wizard transition failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":    state,
		"location": h.nav.Location(session.UserID),
	})
}

// session extracts the authenticated session or writes a 401.
func (h *Handler) session(c *gin.Context) (auth.Session, bool) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return auth.Session{}, false
	}
	return session, true
}
