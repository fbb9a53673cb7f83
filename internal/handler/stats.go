package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/studyhive/studyroom-server/internal/middleware"
	"github.com/studyhive/studyroom-server/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GET /v1/analysis
// Personal study rollups: daily, weekly, per-room, and raw session durations.
func (h *StatsHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	analysis, err := h.statsService.Analysis(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Int64("userId", user.ID).Msg("analysis failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}
