package bridge

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxCommandBody = 64 << 10

// Handler returns the companion HTTP endpoint:
//
//	GET  /health
//	GET  /state         today's day state
//	GET  /state/{day}   a given day's state
//	POST /commands      a JSON command
func (b *Bridge) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/state", b.handleState)
	r.Get("/state/{day}", b.handleState)
	r.Post("/commands", b.handleCommand)
	return r
}

func (b *Bridge) handleState(w http.ResponseWriter, r *http.Request) {
	var cmd GetState
	if raw := chi.URLParam(r, "day"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err == nil {
			err = checkDay(day)
		}
		if err != nil {
			writeMessage(w, ErrorMessage(commandErrorf(CodeInvalidField, "invalid day %q", raw)))
			return
		}
		cmd.Day = &day
	}
	msg, err := b.Submit(r.Context(), cmd)
	if err != nil {
		writeMessage(w, ErrorMessage(commandErrorf(CodeUnavailable, "%v", err)))
		return
	}
	writeMessage(w, msg)
}

func (b *Bridge) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err != nil {
		writeMessage(w, ErrorMessage(commandErrorf(CodeMalformed, "read body: %v", err)))
		return
	}
	msg, err := b.SubmitJSON(r.Context(), body)
	if err != nil {
		writeMessage(w, ErrorMessage(commandErrorf(CodeUnavailable, "%v", err)))
		return
	}
	writeMessage(w, msg)
}

func writeMessage(w http.ResponseWriter, msg Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(msg))
	_ = json.NewEncoder(w).Encode(msg)
}

func statusFor(msg Message) int {
	if msg.Type != MessageError || msg.Error == nil {
		return http.StatusOK
	}
	switch msg.Error.Code {
	case CodeMalformed, CodeUnknownType, CodeInvalidField:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
