package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"reelhouse.org/internal/identity"
	"reelhouse.org/internal/movies"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeFieldErrors renders a per-field validation failure.
func writeFieldErrors(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	payload := map[string]any{
		"error":  "validation failed",
		"fields": fields,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, http.StatusBadRequest, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleMoviesError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *movies.ValidationError
	switch {
	case errors.As(err, &ve):
		writeFieldErrors(w, r, ve.Fields)
	case errors.Is(err, movies.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "movie not found")
	case errors.Is(err, movies.ErrEditConflict):
		writeError(w, r, http.StatusConflict, "unable to update the record due to an edit conflict, please try again")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrDuplicateEmail):
		writeError(w, r, http.StatusUnprocessableEntity, "a user with this email address already exists")
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "identity: invalid input: "))
	case errors.Is(err, identity.ErrInvalidToken):
		writeError(w, r, http.StatusBadRequest, "invalid or expired activation token")
	case errors.Is(err, identity.ErrBadCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid authentication credentials")
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, identity.ErrEditConflict):
		writeError(w, r, http.StatusConflict, "unable to update the record due to an edit conflict, please try again")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
