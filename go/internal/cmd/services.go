package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/sumrush/go/internal/dbconfig"
	"github.com/mcdev12/sumrush/go/internal/gateway"
	"github.com/mcdev12/sumrush/go/internal/publisher"
	"github.com/mcdev12/sumrush/go/internal/results"
	"github.com/mcdev12/sumrush/go/internal/session"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Results   *results.App
	Publisher publisher.EventPublisher
	Sessions  *session.Manager
	Gateway   *gateway.Service

	pool   *pgxpool.Pool
	sqlite *results.SQLiteRepository
}

// setupServices wires the dependency chain:
// store → results app → publisher → session manager → gateway.
func setupServices(ctx context.Context, config *Config) (*Services, error) {
	services := &Services{}

	repo, err := services.setupResultsRepository(ctx, config.Results)
	if err != nil {
		return nil, err
	}
	services.Results = results.NewApp(repo)

	pub, err := setupPublisher(ctx, config.Events)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Publisher = pub

	services.Sessions = session.NewManager(config.Session, services.Results, services.Publisher)
	services.Gateway = gateway.NewService(config.Gateway, services.Sessions, services.Results)

	return services, nil
}

func (s *Services) setupResultsRepository(ctx context.Context, config ResultsConfig) (results.Repository, error) {
	switch config.Store {
	case storePostgres:
		dbConfig, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		pool, err := setupDatabase(ctx, dbConfig)
		if err != nil {
			return nil, err
		}
		s.pool = pool

		repo := results.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			s.pool = nil
			return nil, fmt.Errorf("failed to prepare results schema: %w", err)
		}
		return repo, nil

	case storeSQLite:
		repo, err := results.OpenSQLiteRepository(ctx, config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite results store: %w", err)
		}
		s.sqlite = repo
		log.Info().Str("path", config.SQLitePath).Msg("storing round results in sqlite")
		return repo, nil

	default:
		log.Info().Msg("storing round results in memory")
		return results.NewMemoryRepository(), nil
	}
}

func setupPublisher(ctx context.Context, config EventsConfig) (publisher.EventPublisher, error) {
	if config.Bus != "jetstream" {
		return publisher.NewLogPublisher(log.With().Str("component", "events").Logger()), nil
	}

	pub, err := publisher.NewJetStreamPublisher(ctx, config.JetStream)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}
	log.Info().
		Str("url", config.JetStream.URL).
		Str("stream", config.JetStream.StreamName).
		Msg("publishing round events to JetStream")
	return pub, nil
}

// Close releases the bus connection and the results store.
func (s *Services) Close() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close publisher")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close sqlite results store")
		}
	}
}
