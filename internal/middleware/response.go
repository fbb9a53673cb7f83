package middleware

import (
	"net/http"

	"github.com/studyhive/studyroom-server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
