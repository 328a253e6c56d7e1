// Package server provides HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gptuessr/src/app/http/handler"
	"gptuessr/src/app/middleware"
	"gptuessr/src/core/ports"
	"gptuessr/src/core/usecase"
	"gptuessr/src/infra/config"
	"gptuessr/src/infra/logger"
)

// Dependencies are the adapters the server wires into its services.
type Dependencies struct {
	// Store persists users, lobbies and games.
	Store ports.Store

	// Codes checks lobby code uniqueness. Defaults to Store.
	Codes ports.CodeChecker

	// Verifier authenticates bearer tokens.
	Verifier ports.TokenVerifier

	// Webhooks decodes identity provider deliveries. The webhook route is
	// only registered when it is set.
	Webhooks ports.IdentityEventDecoder

	// Scorer rates guesses for automatic round evaluation. Optional.
	Scorer ports.GuessScorer

	// Checks are reported by /health/detailed.
	Checks map[string]ports.ExternalService
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	router  *gin.Engine
	http    *http.Server
	janitor *usecase.LobbyJanitor
	auth    gin.HandlerFunc

	// Handlers
	healthHandler *handler.HealthHandler
	userHandler   *handler.UserHandler
	lobbyHandler  *handler.LobbyHandler
	gameHandler   *handler.GameHandler
	webhooks      bool
}

// New creates a new Server with all dependencies wired up.
func New(cfg *config.Config, log *slog.Logger, deps Dependencies) *Server {
	// Set Gin mode based on log level
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	router := gin.New()

	codes := deps.Codes
	if codes == nil {
		codes = deps.Store
	}
	checks := map[string]ports.ExternalService{"database": deps.Store}
	for name, c := range deps.Checks {
		checks[name] = c
	}

	// Create services
	healthService := usecase.NewHealthService(logger.WithComponent(log, "health"), checks)
	identityService := usecase.NewIdentityService(deps.Store, logger.WithComponent(log, "identity"))
	gameService := usecase.NewGameService(deps.Store, deps.Scorer, identityService, logger.WithComponent(log, "game"))
	lobbyLog := logger.WithComponent(log, "lobby")
	codeGenerator := usecase.NewCodeGenerator(codes, cfg.Game.CodeMaxAttempts, lobbyLog)
	lobbyService := usecase.NewLobbyService(deps.Store, identityService, codeGenerator, gameService, lobbyLog)
	janitor := usecase.NewLobbyJanitor(deps.Store, lobbyService, cfg.Game.JanitorSchedule, cfg.Game.StaleLobbyAge,
		logger.WithComponent(log, "janitor"))

	var webhookService *usecase.WebhookService
	if deps.Webhooks != nil {
		webhookService = usecase.NewWebhookService(deps.Webhooks, identityService, logger.WithComponent(log, "webhook"))
	}

	s := &Server{
		cfg:           cfg,
		log:           log,
		router:        router,
		janitor:       janitor,
		auth:          middleware.Auth(deps.Verifier),
		healthHandler: handler.NewHealthHandler(healthService, cfg.Server.HealthTimeout),
		userHandler:   handler.NewUserHandler(identityService, webhookService),
		lobbyHandler:  handler.NewLobbyHandler(lobbyService),
		gameHandler:   handler.NewGameHandler(gameService, lobbyService),
		webhooks:      webhookService != nil,
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// Order matters: Recovery should be first to catch all panics
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS(s.cfg.CORS))
	s.router.Use(middleware.Logging(s.log))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check endpoints (no auth required)
	s.router.GET("/health", s.healthHandler.Live)
	s.router.GET("/health/detailed", s.healthHandler.Ready)

	v1 := s.router.Group("/v1")

	// Signed by the identity provider, not by a user token.
	if s.webhooks {
		v1.POST("/users/webhook", s.userHandler.Webhook)
	}

	api := v1.Group("", s.auth)
	{
		// Users
		api.POST("/users/register", s.userHandler.Register)
		api.POST("/users/login", s.userHandler.Login)
		api.POST("/users/logout", s.userHandler.Logout)
		api.GET("/users/me", s.userHandler.Me)
		api.GET("/users/:subject_id", s.userHandler.Get)

		// Lobbies
		api.POST("/lobbies", s.lobbyHandler.Create)
		api.GET("/lobbies/active/count", s.lobbyHandler.CountActive)
		api.GET("/lobbies/host", s.lobbyHandler.ListHosted)
		api.GET("/lobbies/player", s.lobbyHandler.ListJoined)
		api.GET("/lobbies/:code", s.lobbyHandler.Get)
		api.POST("/lobbies/:code/join", s.lobbyHandler.Join)
		api.POST("/lobbies/:code/leave", s.lobbyHandler.Leave)
		api.POST("/lobbies/:code/start", s.lobbyHandler.Start)
		api.POST("/lobbies/:code/end", s.lobbyHandler.End)
		api.POST("/lobbies/:code/close", s.lobbyHandler.Close)
		api.PUT("/lobbies/:code/settings", s.lobbyHandler.UpdateSettings)

		// Games
		api.GET("/games/:game_id", s.gameHandler.Get)
		api.POST("/games/:game_id/rounds", s.gameHandler.BeginRound)
		api.POST("/games/:game_id/rounds/:round/prompt", s.gameHandler.SubmitPrompt)
		api.POST("/games/:game_id/rounds/:round/image", s.gameHandler.AttachImage)
		api.POST("/games/:game_id/rounds/:round/guesses", s.gameHandler.SubmitGuess)
		api.POST("/games/:game_id/rounds/:round/close", s.gameHandler.CloseGuessing)
		api.POST("/games/:game_id/rounds/:round/evaluate", s.gameHandler.Evaluate)
		api.POST("/games/:game_id/rounds/:round/scores", s.gameHandler.ApplyScores)
		api.GET("/games/:game_id/rounds/:round/ranking", s.gameHandler.RoundRanking)
		api.POST("/games/:game_id/advance", s.gameHandler.Advance)
		api.POST("/games/:game_id/leave", s.gameHandler.Leave)
		api.POST("/games/:game_id/finish", s.gameHandler.Finish)
		api.GET("/games/:game_id/ranking", s.gameHandler.Ranking)
	}

	// Handle 404
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":       "NOT_FOUND",
				"message":    "The requested resource was not found",
				"request_id": middleware.GetRequestID(c),
			},
		})
	})
}

// setupHTTPServer configures the underlying HTTP server.
func (s *Server) setupHTTPServer() {
	s.http = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Run() error {
	// Channel to receive shutdown signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	errCh := make(chan error, 1)

	if err := s.janitor.Start(); err != nil {
		return err
	}

	// Start server in goroutine
	go func() {
		s.log.Info("starting HTTP server",
			"addr", s.cfg.Server.Addr(),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-quit:
		s.log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		s.janitor.Stop()
		return err
	}

	// Graceful shutdown
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.log.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.janitor.Stop()

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("server stopped gracefully")
	return nil
}

// Router returns the Gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// WaitForReady waits until the server is ready to accept connections.
// Useful for integration tests.
func (s *Server) WaitForReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", s.cfg.Server.Addr()))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

