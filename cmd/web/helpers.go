package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/circuitgen/internal/contexthelpers"
	"github.com/myrjola/circuitgen/internal/workout"
)

// maxBodyBytes bounds the size of a JSON request body.
const maxBodyBytes = 1 << 20

var errInvalidDay = errors.New("day must be between 1 and 7")

type errorBody struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("marshal response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(append(body, '\n')); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "failed writing response", slog.Any("error", err))
	}
}

// readJSON decodes the request body into v and rejects unknown fields and trailing data.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must contain a single JSON value")
	}
	return nil
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeJSON(w, r, status, errorBody{
		Error:   message,
		TraceID: contexthelpers.TraceID(r.Context()),
	})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", slog.Any("error", err))
	app.errorResponse(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "bad request", slog.Any("error", err))
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

// parseDayParam parses the 1-based "day" path parameter into a 0-based plan index.
func parseDayParam(r *http.Request) (int, error) {
	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil || day < 1 || day > workout.DaysPerWeek {
		return 0, fmt.Errorf("%w: %q", errInvalidDay, r.PathValue("day"))
	}
	return day - 1, nil
}
