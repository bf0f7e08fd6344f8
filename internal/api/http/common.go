package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/examlink/internal/exam"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the engine's error taxonomy onto HTTP statuses and emits
// the stable reason code, never the wrapped driver error text.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	reason := "internal"
	var e *exam.Error
	if errors.As(err, &e) {
		reason = e.Reason
		switch e.Kind {
		case exam.KindNotFound:
			status = http.StatusNotFound
		case exam.KindConflict:
			status = http.StatusConflict
		case exam.KindForbidden:
			status = http.StatusForbidden
		case exam.KindInvalid:
			status = http.StatusBadRequest
		case exam.KindUnavailable:
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]string{"error": reason})
}
