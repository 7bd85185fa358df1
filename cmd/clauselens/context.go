package main

import (
	"context"
	"log"

	"github.com/clauselens/clauselens/cmd/clauselens/internal"
	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/pipeline"
	"github.com/clauselens/clauselens/internal/session"
)

// openPipeline builds the full pipeline: session database plus provider
// clients. The returned cleanup closes both.
func openPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, func()) {
	db := openSession(cfg)

	p, err := pipeline.New(ctx, cfg, db)
	if err != nil {
		db.Close()
		log.Fatalf("Failed to initialize services: %v", err)
	}
	return p, func() {
		p.Close()
		db.Close()
	}
}

// openSession opens only the session database, for commands that never
// touch the model providers.
func openSession(cfg *config.Config) *session.DB {
	dataDir, err := cfg.DataDir()
	if err != nil {
		log.Fatalf("Failed to resolve data directory: %v", err)
	}
	dbPath, err := internal.SessionDBPath(dataDir)
	if err != nil {
		log.Fatalf("Failed to prepare data directory: %v", err)
	}
	db, err := session.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open session database: %v", err)
	}
	return db
}
