package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/studyhive/studyroom-server/internal/errors"
	"github.com/studyhive/studyroom-server/internal/middleware"
	"github.com/studyhive/studyroom-server/internal/service"
)

type RoomsHandler struct {
	roomService        *service.RoomService
	leaderboardService *service.LeaderboardService
}

func NewRoomsHandler(roomService *service.RoomService, leaderboardService *service.LeaderboardService) *RoomsHandler {
	return &RoomsHandler{
		roomService:        roomService,
		leaderboardService: leaderboardService,
	}
}

func (h *RoomsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/join", h.Join)
	r.Get("/{code}", h.Get)
	r.Get("/{code}/members", h.Members)
	r.Get("/{code}/leaderboard", h.Leaderboard)

	return r
}

// POST /v1/rooms
func (h *RoomsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	room, err := h.roomService.Create(r.Context(), user.ID, req.Name, req.Code)
	if err != nil {
		if !apperrors.IsAppError(err) {
			log.Error().Err(err).Int64("userId", user.ID).Msg("create room failed")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// POST /v1/rooms/join
func (h *RoomsHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	room, err := h.roomService.Join(r.Context(), user.ID, req.Code)
	if err != nil {
		if !apperrors.IsAppError(err) {
			log.Error().Err(err).Int64("userId", user.ID).Msg("join room failed")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// GET /v1/rooms
func (h *RoomsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	rooms, err := h.roomService.ListForUser(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Int64("userId", user.ID).Msg("list rooms failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// GET /v1/rooms/{code}
func (h *RoomsHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomService.FindByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// GET /v1/rooms/{code}/members
func (h *RoomsHandler) Members(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	members, err := h.roomService.Members(r.Context(), code)
	if err != nil {
		if !apperrors.IsAppError(err) {
			log.Error().Err(err).Str("code", code).Msg("list members failed")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// GET /v1/rooms/{code}/leaderboard
func (h *RoomsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	board, err := h.leaderboardService.ForRoom(r.Context(), code)
	if err != nil {
		if !apperrors.IsAppError(err) {
			log.Error().Err(err).Str("code", code).Msg("leaderboard failed")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}
