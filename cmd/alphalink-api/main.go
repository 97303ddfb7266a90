package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/alphalink/alphalink/internal/adapters/http"
	"github.com/alphalink/alphalink/internal/adapters/llm"
	firestorestore "github.com/alphalink/alphalink/internal/adapters/storage/firestore"
	memstore "github.com/alphalink/alphalink/internal/adapters/storage/memory"
	"github.com/alphalink/alphalink/internal/adapters/ws"
	"github.com/alphalink/alphalink/internal/app/chat"
	"github.com/alphalink/alphalink/internal/app/registry"
	"github.com/alphalink/alphalink/internal/app/workflow"
	"github.com/alphalink/alphalink/internal/config"
	"github.com/alphalink/alphalink/internal/domain"
	"github.com/alphalink/alphalink/internal/observability"
)

func main() {
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.Logger().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	var gen domain.GenerativeClient
	if cfg.UseMockLLM {
		log.Info("using mock generative client")
		gen = llm.NewMockClient()
	} else {
		log.Info("using Gemini generative client", "model", cfg.ModelName)
		gen, err = llm.NewGeminiClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			log.Error("failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
	}

	var (
		sessionStore domain.SessionStore
		messageStore domain.MessageStore
		collabStore  domain.CollabStore
	)

	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Error("failed to initialize Firestore store", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		// One store, three ports.
		sessionStore = store
		messageStore = store
		collabStore = store

	default:
		log.Info("using in-memory storage")
		sessionStore = memstore.NewSessionStore()
		messageStore = memstore.NewMessageStore()
		collabStore = memstore.NewCollabStore()
	}

	hub := ws.NewHub()

	registrySvc := registry.NewService(sessionStore, hub)
	chatSvc := chat.NewService(sessionStore, messageStore, gen, hub, chat.DefaultCatalog())
	workflowSvc := workflow.NewService(collabStore, gen, hub)

	handler := httpadapter.NewServer(registrySvc, chatSvc, workflowSvc, hub)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("AlphaLink API listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
