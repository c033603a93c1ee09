package shipdeskapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/pkg/errors"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит доменные ошибки в HTTP. Для изменяющих запросов неизвестный id
// отвечает успехом, чтобы не раскрывать существование отправления.
func writeError(w http.ResponseWriter, err error, mutating bool) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound) && mutating:
		writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
		return
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrMalformedInput):
		code = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, models.ErrNoFees), errors.Is(err, models.ErrAlreadyPaid), errors.Is(err, models.ErrNotVerifiable):
		code = http.StatusConflict
	case errors.Is(err, models.ErrRateLimited):
		code = http.StatusTooManyRequests
	}

	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}
