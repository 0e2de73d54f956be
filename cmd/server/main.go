package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"repolens/internal/config"
	"repolens/internal/database"
	"repolens/internal/evidence"
	"repolens/internal/github"
	"repolens/internal/handler"
	"repolens/internal/llm"
	"repolens/internal/middleware"
	"repolens/internal/repository"
	"repolens/internal/service"
)

// main is the single entry-point for the REST API.
func main() {
	cfg := config.Load()

	log := newLogger(cfg.LogPretty)
	log.Info().Str("db", cfg.DBName).Str("model", cfg.Model).Msg("configuration loaded")

	ctx := context.Background()

	// Connect to MongoDB
	client, err := database.NewMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)
	log.Info().Msg("connected to MongoDB")

	db := client.Database(cfg.DBName)
	analysisRepo := repository.NewAnalysisRepository(db)
	routeCache, err := repository.NewRouteCacheRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize route cache")
	}

	// Build the LLM pool: one primary generator plus the configured
	// secondaries for relevance calls.
	primary, err := llm.NewVertexGenerator(ctx, llm.Credential{
		Name:            "primary",
		ProjectID:       cfg.ProjectID,
		Location:        cfg.Location,
		CredentialsFile: cfg.PrimaryCredentials,
		Model:           cfg.Model,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize primary LLM client")
	}
	defer primary.Close()

	var secondaries []llm.Generator
	for i, credsFile := range cfg.SecondaryCredentials {
		gen, err := llm.NewVertexGenerator(ctx, llm.Credential{
			Name:            fmt.Sprintf("secondary-%d", i),
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			CredentialsFile: credsFile,
			Model:           cfg.Model,
		})
		if err != nil {
			log.Fatal().Err(err).Int("index", i).Msg("failed to initialize secondary LLM client")
		}
		defer gen.Close()
		secondaries = append(secondaries, gen)
	}

	pool := llm.NewPool(primary, secondaries...)
	guard := llm.NewGuard(log)

	// GitHub client and services
	gh := github.NewClient(cfg.GitHubToken)
	assembler := evidence.NewAssembler(gh, log)

	analysisSvc := service.NewAnalysisService(analysisRepo, assembler, pool, guard, log)
	routeSvc := service.NewRouteService(analysisRepo, routeCache, gh, pool, guard, log)
	issueSvc := service.NewIssueService(gh)

	// Create Fiber app. The write timeout is generous: a cold full analysis
	// legitimately takes 30-60 seconds end to end.
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	app.Use(middleware.Logging(log))

	handler.RegisterRoutes(app, analysisSvc, routeSvc, issueSvc)
	handler.NewHealthHandler(client).Register(app)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func newLogger(pretty bool) zerolog.Logger {
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
