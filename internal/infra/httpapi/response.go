package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type messageResponse struct {
	Message string `json:"message"`
}

type transcriptionResponse struct {
	Transcription string `json:"transcription"`
}

type askResponse struct {
	Response string `json:"response"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, statusCode int, detail string) {
	writeJSON(w, logger, statusCode, ErrorResponse{Detail: detail})
}
