package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"reelhouse.org/internal/auth"
	"reelhouse.org/internal/identity"
	"reelhouse.org/internal/movies"
	"reelhouse.org/internal/obs"
	"reelhouse.org/internal/ratelimit"
)

// ReadyProbe reports whether the service can take traffic, pinging the
// database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer. All collaborators are injected; the handler chain
// is assembled once in Handler.
type API struct {
	mux        *http.ServeMux
	movies     movies.Service
	users      *identity.Service
	issuer     *auth.Issuer
	verifier   *auth.Verifier
	limiter    ratelimit.Limiter
	limiterKey KeyFunc
	readyProbe ReadyProbe
	version    string
}

// Options carries the collaborators for New. Limiter may be nil to disable
// admission control; LimiterKey may be nil to partition by identity.
type Options struct {
	Movies     movies.Service
	Users      *identity.Service
	Issuer     *auth.Issuer
	Verifier   *auth.Verifier
	Limiter    ratelimit.Limiter
	LimiterKey KeyFunc
	Ready      ReadyProbe
	Version    string
}

func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		movies:     opts.Movies,
		users:      opts.Users,
		issuer:     opts.Issuer,
		verifier:   opts.Verifier,
		limiter:    opts.Limiter,
		limiterKey: opts.LimiterKey,
		readyProbe: opts.Ready,
		version:    opts.Version,
	}
	if a.limiterKey == nil {
		a.limiterKey = IdentityKey
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// identity
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/activated", a.handleUsersActivated)
	a.mux.HandleFunc("/v1/users/login", a.handleLogin)

	// catalog
	a.mux.HandleFunc("/v1/movies", a.handleMoviesCollection)
	a.mux.HandleFunc("/v1/movies/", a.handleMovieResource)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain. Admission control sits inside
// authentication so limiter partitions can key on the verified identity.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.rateLimit(h)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = LoggingJSON(h)
	h = RequestID(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "reelhouse-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "reelhouse-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
