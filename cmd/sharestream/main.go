package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"sharestream/api"
	"sharestream/config"
	"sharestream/handlers"
	"sharestream/services/metadata"
	"sharestream/services/resolver"
	"sharestream/services/sessions"
	"sharestream/services/webshare"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}

	if cfg.Logging.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, rotated))
	}

	sessionsSvc, err := sessions.NewService(nil, cfg.Sessions.Dir, cfg.Sessions.TTL())
	if err != nil {
		log.Fatalf("[main] init sessions: %v", err)
	}

	webshareClient := webshare.NewClient(nil, cfg.Webshare.BaseURL, cfg.Webshare.Salt)
	titles := metadata.NewClient(nil, "", cfg.TMDB.APIKey, cfg.TMDB.Locales)
	resolverSvc := resolver.NewService(webshareClient, titles, cfg.Resolver.MaxConcurrent, cfg.Resolver.Timeout())

	perSecond := rate.Limit(float64(cfg.RateLimit.PerMinute) / 60.0)
	limiter := api.NewIPRateLimiter(perSecond, cfg.RateLimit.Burst)

	addon := handlers.NewAddonHandler(sessionsSvc, webshareClient, resolverSvc)
	login := handlers.NewLoginHandler(sessionsSvc, webshareClient)

	r := mux.NewRouter()
	r.Use(api.CORSMiddleware())
	r.Use(api.RateLimitMiddleware(limiter))

	r.HandleFunc("/", login.Form).Methods(http.MethodGet)
	r.HandleFunc("/configure", login.Form).Methods(http.MethodGet)
	r.HandleFunc("/login", login.Form).Methods(http.MethodGet)
	r.HandleFunc("/login", login.Submit).Methods(http.MethodPost)
	r.HandleFunc("/manifest.json", addon.Manifest).Methods(http.MethodGet)
	r.HandleFunc("/{token}/manifest.json", addon.Manifest).Methods(http.MethodGet)
	r.HandleFunc("/{token}/catalog/{type}/{catalogID}/{extra}", addon.Catalog).Methods(http.MethodGet)
	r.HandleFunc("/{token}/stream/{type}/{id}", addon.Stream).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[main] listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
