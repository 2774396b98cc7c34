package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/papyr-dev/papyr-store/internal/access"
	"github.com/papyr-dev/papyr-store/internal/api"
	"github.com/papyr-dev/papyr-store/internal/auth"
	"github.com/papyr-dev/papyr-store/internal/config"
	"github.com/papyr-dev/papyr-store/internal/logger"
	"github.com/papyr-dev/papyr-store/internal/store"
	"github.com/papyr-dev/papyr-store/internal/vault"
	"github.com/papyr-dev/papyr-store/pkg/schema"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logger.New(0).Fatal("failed to load config", "error", err)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting papyr-stored", "port", cfg.Port, "data_dir", cfg.DataDir)

	seed, err := store.LoadSeed(cfg.DataDir, log)
	if err != nil {
		log.Fatal("failed to load seed data", "error", err)
	}

	// Users and sessions live in a separate store that the data service
	// never serves directly.
	protectedSeed := map[string]map[string]schema.Record{}
	for _, name := range []string{store.UsersCollection, store.SessionsCollection} {
		if records, ok := seed[name]; ok {
			protectedSeed[name] = records
			delete(seed, name)
		}
	}

	storage := store.NewMemStore(seed)
	protected := store.NewMemStore(protectedSeed)

	log.Info("collections loaded", "count", len(storage.Collections()))

	hasher := vault.New(cfg.TokenSecret)
	manager := auth.NewManager(protected, hasher, cfg.IdentityField, log)

	rules := access.DefaultRuleSet().Merge(map[string]access.CollectionRules{
		store.UsersCollection: {
			Actions: map[access.Action]access.Rule{
				access.ActionCreate: access.StaticBool(false),
				access.ActionRead:   access.Roles(access.RoleOwner),
				access.ActionUpdate: access.StaticBool(false),
				access.ActionDelete: access.StaticBool(false),
			},
		},
	})

	h := &api.Handler{
		Storage:   storage,
		Protected: protected,
		Auth:      manager,
		Access:    access.NewResolver(rules),
		Flags:     api.NewFlags(cfg.Throttle),
		Log:       log,
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(h),
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr, "admin", "http://localhost:"+cfg.Port+"/admin/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
