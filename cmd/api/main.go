package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"reelhouse.org/internal/auth"
	"reelhouse.org/internal/config"
	"reelhouse.org/internal/httpapi"
	"reelhouse.org/internal/identity"
	"reelhouse.org/internal/movies"
	"reelhouse.org/internal/obs"
	"reelhouse.org/internal/ratelimit"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Without a DSN the service runs on in-memory stores, which is enough
	// for local development and the smoke suite.
	var (
		db         *sql.DB
		movieStore movies.Service
		userStore  identity.Store
	)
	if cfg.PGDSN != "" {
		pg, err := movies.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = pg.DB()
		movieStore = pg
		userStore = identity.NewPGStore(db)
	} else {
		log.Println("no REELHOUSE_PG_DSN set, using in-memory stores")
		movieStore = movies.NewInMemory()
		userStore = identity.NewMemory()
	}

	users, err := identity.NewService(userStore)
	if err != nil {
		log.Fatalf("identity: %v", err)
	}
	issuer, err := auth.NewIssuer(cfg.JWT)
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}
	verifier, err := auth.NewVerifier(cfg.JWT)
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}

	var limiter ratelimit.Limiter
	if cfg.RateEnabled {
		limiter = ratelimit.New(cfg.Rate)
	}

	api := httpapi.New(httpapi.Options{
		Movies:   movieStore,
		Users:    users,
		Issuer:   issuer,
		Verifier: verifier,
		Limiter:  limiter,
		Ready:    httpapi.ReadyProbe{DB: db},
		Version:  version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting reelhouse-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if fw, ok := limiter.(*ratelimit.FixedWindow); ok {
		fw.Stop()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
