package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/audio"
)

const (
	RootMessage = "Voice Assistant Backend Running!"

	uploadField   = "file"
	questionField = "question"

	// multipart framing allowance on top of the file size limit
	multipartOverhead = 64 << 10
	maxAskFormBytes   = 64 << 10
)

// Assistant is what the router needs from the application layer.
type Assistant interface {
	Transcribe(ctx context.Context, upload domain.UploadedAudio) (domain.Transcript, error)
	Ask(ctx context.Context, question string) (string, error)
}

type handlers struct {
	assistant      Assistant
	maxUploadBytes int64
	logger         *slog.Logger
}

func (h *handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, messageResponse{Message: RootMessage})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *handlers) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}
	defer r.Body.Close()

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, fmt.Sprintf("expected multipart/form-data body: %v", err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, h.logger, http.StatusUnprocessableEntity, fmt.Sprintf("missing form field %q", uploadField))
			return
		}
		if err != nil {
			if isTooLarge(err) {
				writeError(w, h.logger, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
				return
			}
			writeError(w, h.logger, http.StatusBadRequest, fmt.Sprintf("malformed multipart body: %v", err))
			return
		}

		if part.FormName() != uploadField || part.FileName() == "" {
			part.Close()
			continue
		}

		transcript, err := h.assistant.Transcribe(r.Context(), domain.UploadedAudio{
			Filename: part.FileName(),
			Body:     part,
		})
		part.Close()

		if err != nil {
			h.writeTranscribeError(w, r, err)
			return
		}

		writeJSON(w, h.logger, http.StatusOK, transcriptionResponse{Transcription: transcript.Text()})
		return
	}
}

func (h *handlers) writeTranscribeError(w http.ResponseWriter, r *http.Request, err error) {
	if isTooLarge(err) {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}

	var (
		uploadErr *domain.UploadError
		sttErr    *domain.TranscriptionError
	)
	switch {
	case errors.As(err, &uploadErr):
		h.logger.Error("staging upload", "request_id", RequestID(r.Context()), "error", err)
	case errors.As(err, &sttErr):
		h.logger.Error("transcription failed", "request_id", RequestID(r.Context()), "error", err)
	default:
		h.logger.Error("transcribe", "request_id", RequestID(r.Context()), "error", err)
	}

	writeError(w, h.logger, http.StatusInternalServerError, err.Error())
}

func (h *handlers) handleAsk(w http.ResponseWriter, r *http.Request) {
	question, ok, err := questionFrom(w, r)
	if err != nil {
		if isTooLarge(err) {
			writeError(w, h.logger, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, h.logger, http.StatusBadRequest, fmt.Sprintf("malformed form body: %v", err))
		return
	}
	if !ok {
		writeError(w, h.logger, http.StatusUnprocessableEntity, fmt.Sprintf("missing parameter %q", questionField))
		return
	}

	answer, err := h.assistant.Ask(r.Context(), question)
	if err != nil {
		h.logger.Error("ask", "request_id", RequestID(r.Context()), "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, askResponse{Response: answer})
}

// questionFrom reads the question from the query string, then from an
// urlencoded or multipart form body. An empty question is allowed.
func questionFrom(w http.ResponseWriter, r *http.Request) (string, bool, error) {
	if query := r.URL.Query(); query.Has(questionField) {
		return query.Get(questionField), true, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAskFormBytes)
	if err := r.ParseMultipartForm(maxAskFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", false, err
	}

	if r.PostForm.Has(questionField) {
		return r.PostForm.Get(questionField), true, nil
	}
	return "", false, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, audio.ErrTooLarge)
}

var allowedMethods = map[string]string{
	"/":            http.MethodGet,
	"/health":      http.MethodGet,
	"/transcribe":  http.MethodPost,
	"/transcribe/": http.MethodPost,
	"/ask":         http.MethodPost,
	"/ask/":        http.MethodPost,
}

func (h *handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if method, ok := allowedMethods[r.URL.Path]; ok {
		w.Header().Set("Allow", method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	writeError(w, h.logger, http.StatusNotFound, "Not Found")
}
