package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"reelhouse.org/internal/audit"
	"reelhouse.org/internal/auth"
	"reelhouse.org/internal/movies"
)

type createMovieRequest struct {
	Title   string   `json:"title"`
	Year    int32    `json:"year"`
	Runtime int32    `json:"runtime"`
	Genres  []string `json:"genres"`
}

type updateMovieRequest struct {
	Title           *string  `json:"title"`
	Year            *int32   `json:"year"`
	Runtime         *int32   `json:"runtime"`
	Genres          []string `json:"genres"`
	ExpectedVersion *int32   `json:"expected_version"`
}

type listMoviesResponse struct {
	Movies   []movies.Movie `json:"movies"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func (a *API) handleMoviesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.guard(w, r, auth.PolicyEmailConfirmed, auth.PolicyMoviesRead) {
			return
		}
		a.listMovies(w, r)
	case http.MethodPost:
		if !a.guard(w, r, auth.PolicyEmailConfirmed, auth.PolicyMoviesWrite) {
			return
		}
		a.createMovie(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleMovieResource(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDFromPath(r.URL.Path)
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !a.guard(w, r, auth.PolicyEmailConfirmed, auth.PolicyMoviesRead) {
			return
		}
		a.getMovie(w, r, id)
	case http.MethodPatch:
		if !a.guard(w, r, auth.PolicyEmailConfirmed, auth.PolicyMoviesWrite) {
			return
		}
		a.updateMovie(w, r, id)
	case http.MethodDelete:
		if !a.guard(w, r, auth.PolicyEmailConfirmed, auth.PolicyMoviesWrite) {
			return
		}
		a.deleteMovie(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func movieIDFromPath(path string) (int64, bool) {
	raw := strings.TrimPrefix(path, "/v1/movies/")
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func (a *API) listMovies(w http.ResponseWriter, r *http.Request) {
	q, ve := movies.CompileQuery(r.URL.Query())
	if ve != nil {
		writeFieldErrors(w, r, ve.Fields)
		return
	}

	items, err := a.movies.List(r.Context(), q)
	if err != nil {
		handleMoviesError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listMoviesResponse{
		Movies:   items,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

func (a *API) getMovie(w http.ResponseWriter, r *http.Request, id int64) {
	m, err := a.movies.Get(r.Context(), id)
	if err != nil {
		handleMoviesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movie": m})
}

func (a *API) createMovie(w http.ResponseWriter, r *http.Request) {
	var req createMovieRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	candidate := movies.Movie{
		Title:   req.Title,
		Year:    req.Year,
		Runtime: req.Runtime,
		Genres:  req.Genres,
	}
	if ve := movies.ValidateMovie(candidate, time.Now()); ve != nil {
		writeFieldErrors(w, r, ve.Fields)
		return
	}

	m, err := a.movies.Create(r.Context(), candidate)
	if err != nil {
		handleMoviesError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventMovieCreated, map[string]any{
		"movie_id": m.ID,
		"title":    m.Title,
	})

	w.Header().Set("Location", "/v1/movies/"+strconv.FormatInt(m.ID, 10))
	writeJSON(w, http.StatusCreated, map[string]any{"movie": m})
}

func (a *API) updateMovie(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateMovieRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ExpectedVersion == nil {
		writeFieldErrors(w, r, map[string]string{"expected_version": "must be provided"})
		return
	}

	// Validate against the patched record before committing, so a partial
	// update cannot leave an invalid row behind.
	current, err := a.movies.Get(r.Context(), id)
	if err != nil {
		handleMoviesError(w, r, err)
		return
	}
	candidate := current
	if req.Title != nil {
		candidate.Title = *req.Title
	}
	if req.Year != nil {
		candidate.Year = *req.Year
	}
	if req.Runtime != nil {
		candidate.Runtime = *req.Runtime
	}
	if req.Genres != nil {
		candidate.Genres = req.Genres
	}
	if ve := movies.ValidateMovie(candidate, time.Now()); ve != nil {
		writeFieldErrors(w, r, ve.Fields)
		return
	}

	patch := movies.Patch{
		Title:   req.Title,
		Year:    req.Year,
		Runtime: req.Runtime,
		Genres:  req.Genres,
	}
	m, err := a.movies.Update(r.Context(), id, *req.ExpectedVersion, patch)
	if err != nil {
		handleMoviesError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventMovieUpdated, map[string]any{
		"movie_id": m.ID,
		"version":  m.Version,
	})

	writeJSON(w, http.StatusOK, map[string]any{"movie": m})
}

func (a *API) deleteMovie(w http.ResponseWriter, r *http.Request, id int64) {
	if err := a.movies.Delete(r.Context(), id); err != nil {
		handleMoviesError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventMovieDeleted, map[string]any{
		"movie_id": id,
	})

	w.WriteHeader(http.StatusNoContent)
}
