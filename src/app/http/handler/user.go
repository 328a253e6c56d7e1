package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gptuessr/src/app/http/dto"
	"gptuessr/src/app/http/response"
	"gptuessr/src/app/middleware"
	"gptuessr/src/core/domain"
	"gptuessr/src/core/usecase"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 1 << 20

// UserHandler handles user and identity webhook endpoints.
type UserHandler struct {
	identity *usecase.IdentityService
	webhooks *usecase.WebhookService
}

func NewUserHandler(identity *usecase.IdentityService, webhooks *usecase.WebhookService) *UserHandler {
	return &UserHandler{identity: identity, webhooks: webhooks}
}

// Register creates or refreshes the caller's user record.
// POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	// The body is optional; the token alone is enough to register.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid payload")
		return
	}

	u, err := h.identity.Register(c.Request.Context(), req.ToRegistration(middleware.GetSubjectID(c)))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewMeResponse(u))
}

// Login marks the caller online under the token's session.
// POST /v1/users/login
func (h *UserHandler) Login(c *gin.Context) {
	u, err := h.identity.UpdateOnLogin(c.Request.Context(), middleware.GetSubjectID(c), middleware.GetSessionID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewMeResponse(u))
}

// Logout marks the caller offline.
// POST /v1/users/logout
func (h *UserHandler) Logout(c *gin.Context) {
	if _, err := h.identity.Logout(c.Request.Context(), middleware.GetSubjectID(c)); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}

// Me returns the caller's full profile.
// GET /v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.identity.Resolve(c.Request.Context(), middleware.GetSubjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewMeResponse(u))
}

// Get returns another user's public profile.
// GET /v1/users/:subject_id
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.identity.Resolve(c.Request.Context(), c.Param("subject_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.NewUserResponse(u))
}

// Webhook receives identity provider events. Deliveries the service does not
// understand are acknowledged so the provider stops retrying them.
// POST /v1/users/webhook
func (h *UserHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable payload")
		return
	}

	kind, err := h.webhooks.Handle(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		fail(c, err)
		return
	}

	event := string(kind)
	if kind == domain.EventIgnored {
		event = "ignored"
	}
	response.OK(c, dto.WebhookResponse{Received: true, Event: event})
}
