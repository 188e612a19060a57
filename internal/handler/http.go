package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pobabytouch/leaderboard/internal/domain"
	"github.com/pobabytouch/leaderboard/internal/engine"
	"github.com/pobabytouch/leaderboard/internal/websocket"
)

// broadcastDepth is how many entries a post-save broadcast carries,
// matching the high-score board depth.
const broadcastDepth = 10

// ConnectivityProbe reports whether the service's backing store is
// reachable; the readiness endpoint consumes it.
type ConnectivityProbe interface {
	CheckConnectivity(ctx context.Context) bool
}

// Handler provides HTTP handlers for the high-score API
type Handler struct {
	service *engine.Engine
	hub     *websocket.Hub
	probe   ConnectivityProbe
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *engine.Engine, hub *websocket.Hub, probe ConnectivityProbe, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		probe:   probe,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// High score API
	r.Route("/api/highscores", func(r chi.Router) {
		r.Get("/", h.GetTopScores)
		r.Post("/", h.SaveHighScore)
		r.Get("/check/{score}", h.IsHighScore)
		r.Get("/rank/{score}", h.GetPlayerRank)
		r.Get("/test", h.TestConnection)
		r.Get("/stats", h.GetStats)
		r.Delete("/{gameMode}/{sortKey}", h.DeleteScore)
	})

	// WebSocket info endpoint
	r.Get("/api/ws/stats", h.GetWebSocketStats)

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// gameMode reads the gameMode query parameter, defaulting when absent
func gameMode(r *http.Request) string {
	if mode := r.URL.Query().Get("gameMode"); mode != "" {
		return mode
	}
	return domain.DefaultGameMode
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	total := 0
	if h.hub != nil {
		total = h.hub.GetTotalConnections()
	}
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": total,
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck reports readiness based on store connectivity
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if !h.probe.CheckConnectivity(r.Context()) {
		h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Error:   "score store unreachable",
		})
		return
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetTopScores returns the top scores for a game mode
func (h *Handler) GetTopScores(w http.ResponseWriter, r *http.Request) {
	count := h.service.DefaultCount()
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if c, err := strconv.Atoi(countStr); err == nil {
			count = c
		}
	}

	entries := h.service.TopScores(r.Context(), count, gameMode(r))
	h.writeSuccess(w, entries)
}

// SaveHighScore handles score submission
func (h *Handler) SaveHighScore(w http.ResponseWriter, r *http.Request) {
	var submission domain.ScoreSubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.SaveScore(r.Context(), submission); err != nil {
		if domain.IsValidationError(err) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to save high score", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.broadcastLeaderboard(r.Context(), submission.Normalized().GameMode)
	h.writeSuccess(w, map[string]string{"message": "high score saved successfully"})
}

// IsHighScore reports whether a score would enter the leaderboard
func (h *Handler) IsHighScore(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.ParseInt(chi.URLParam(r, "score"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	h.writeSuccess(w, h.service.IsHighScore(r.Context(), score, gameMode(r)))
}

// GetPlayerRank returns the rank a score would occupy
func (h *Handler) GetPlayerRank(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.ParseInt(chi.URLParam(r, "score"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	rank := h.service.RankForScore(r.Context(), score, gameMode(r))
	if rank == engine.RankUnavailable {
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, rank)
}

// TestConnection is a diagnostics endpoint probing the score store
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	status := h.service.Status(r.Context())
	if status.Status != "connected" {
		h.writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success: false,
			Data:    status,
		})
		return
	}
	h.writeSuccess(w, status)
}

// GetStats returns the score count for a game mode
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	mode := gameMode(r)
	count, err := h.service.Count(r.Context(), mode)
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"game_mode":   mode,
		"score_count": count,
	})
}

// DeleteScore removes one score record (administrative)
func (h *Handler) DeleteScore(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "gameMode")
	sortKey := chi.URLParam(r, "sortKey")
	if mode == "" || sortKey == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.DeleteScore(r.Context(), mode, sortKey); err != nil {
		h.logger.Error("failed to delete score", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.broadcastLeaderboard(r.Context(), mode)
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// broadcastLeaderboard pushes the refreshed top entries for a game mode
// to subscribed WebSocket clients
func (h *Handler) broadcastLeaderboard(ctx context.Context, mode string) {
	if h.hub == nil {
		return
	}
	entries := h.service.TopScores(ctx, broadcastDepth, mode)
	count, err := h.service.Count(ctx, mode)
	if err != nil {
		count = int64(len(entries))
	}
	h.hub.BroadcastLeaderboardUpdate(mode, entries, count)
}
