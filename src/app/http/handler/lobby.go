package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"gptuessr/src/app/http/dto"
	"gptuessr/src/app/http/response"
	"gptuessr/src/app/middleware"
	"gptuessr/src/core/domain"
	"gptuessr/src/core/usecase"
)

// LobbyHandler handles lobby endpoints. The caller is always the
// authenticated subject; player ids are never taken from the body.
type LobbyHandler struct {
	lobbies *usecase.LobbyService
}

func NewLobbyHandler(lobbies *usecase.LobbyService) *LobbyHandler {
	return &LobbyHandler{lobbies: lobbies}
}

// lobbyCode normalises the path code; codes are case-insensitive on input.
func lobbyCode(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("code")))
}

// Create opens a lobby hosted by the caller.
// POST /v1/lobbies
func (h *LobbyHandler) Create(c *gin.Context) {
	var req dto.CreateLobbyRequest
	// An empty body creates a lobby with the defaults.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid payload")
		return
	}

	l, err := h.lobbies.Create(c.Request.Context(), usecase.CreateLobbyInput{
		HostID: middleware.GetSubjectID(c),
		Config: req.ToConfig(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, l)
}

// Get returns a lobby by code.
// GET /v1/lobbies/:code
func (h *LobbyHandler) Get(c *gin.Context) {
	l, err := h.lobbies.GetByCode(c.Request.Context(), lobbyCode(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, l)
}

// ListHosted returns the lobbies the caller hosts.
// GET /v1/lobbies/host
func (h *LobbyHandler) ListHosted(c *gin.Context) {
	ls, err := h.lobbies.ListByHost(c.Request.Context(), middleware.GetSubjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, nonNilLobbies(ls))
}

// ListJoined returns the lobbies the caller is a member of.
// GET /v1/lobbies/player
func (h *LobbyHandler) ListJoined(c *gin.Context) {
	ls, err := h.lobbies.ListByPlayer(c.Request.Context(), middleware.GetSubjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, nonNilLobbies(ls))
}

// CountActive returns how many lobbies are waiting or in play.
// GET /v1/lobbies/active/count
func (h *LobbyHandler) CountActive(c *gin.Context) {
	n, err := h.lobbies.CountActive(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.CountResponse{Count: n})
}

// Join adds the caller to a waiting lobby.
// POST /v1/lobbies/:code/join
func (h *LobbyHandler) Join(c *gin.Context) {
	l, err := h.lobbies.Join(c.Request.Context(), lobbyCode(c), middleware.GetSubjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, l)
}

// Leave removes the caller; the host leaving closes the lobby.
// POST /v1/lobbies/:code/leave
func (h *LobbyHandler) Leave(c *gin.Context) {
	res, err := h.lobbies.Leave(c.Request.Context(), lobbyCode(c), middleware.GetSubjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.LeaveLobbyResponse{Closed: res.Closed, Lobby: res.Lobby})
}

// Start begins the game. Only the host may start.
// POST /v1/lobbies/:code/start
func (h *LobbyHandler) Start(c *gin.Context) {
	res, err := h.lobbies.StartGame(c.Request.Context(), lobbyCode(c), middleware.GetSubjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.StartLobbyResponse{Lobby: res.Lobby, Game: res.Game})
}

// End marks the lobby finished. Host only.
// POST /v1/lobbies/:code/end
func (h *LobbyHandler) End(c *gin.Context) {
	code := lobbyCode(c)
	if !h.requireHost(c, code) {
		return
	}
	l, err := h.lobbies.EndGame(c.Request.Context(), code)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, l)
}

// Close shuts the lobby whatever its state. Host only.
// POST /v1/lobbies/:code/close
func (h *LobbyHandler) Close(c *gin.Context) {
	code := lobbyCode(c)
	if !h.requireHost(c, code) {
		return
	}
	l, err := h.lobbies.Close(c.Request.Context(), code)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, l)
}

// UpdateSettings changes the configuration of a waiting lobby. Host only.
// PUT /v1/lobbies/:code/settings
func (h *LobbyHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	l, err := h.lobbies.UpdateSettings(c.Request.Context(), lobbyCode(c), middleware.GetSubjectID(c), req.ToUpdate())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, l)
}

func (h *LobbyHandler) requireHost(c *gin.Context, code string) bool {
	l, err := h.lobbies.GetByCode(c.Request.Context(), code)
	if err != nil {
		fail(c, err)
		return false
	}
	if !l.IsHost(middleware.GetSubjectID(c)) {
		fail(c, domain.NewForbiddenError("only the host can do this"))
		return false
	}
	return true
}

func nonNilLobbies(ls []*domain.Lobby) []*domain.Lobby {
	if ls == nil {
		return []*domain.Lobby{}
	}
	return ls
}
