package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mhealth-survey-service/internal/app"
	"mhealth-survey-service/internal/config"
	"mhealth-survey-service/internal/domain"
	"mhealth-survey-service/internal/infra/memory"
	mongostore "mhealth-survey-service/internal/infra/mongo"
	pgstore "mhealth-survey-service/internal/infra/postgres"
	redisinfra "mhealth-survey-service/internal/infra/redis"
	transport "mhealth-survey-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the survey collection server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	campaignTTL := config.TTLDuration(cfg.Campaign.TTL, 10*time.Minute)

	var loader memory.CampaignLoader
	if cfg.Mongo.URI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()
		database := cfg.Mongo.Database
		if database == "" {
			database = "mhealth"
		}
		loader = mongostore.NewCampaignStore(client.Database(database))
	} else {
		loader, err = memory.NewStaticCampaignLoader(sampleCampaigns())
		if err != nil {
			return err
		}
	}

	var registry app.CampaignRegistry
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		registry = redisinfra.NewCampaignCache(redisClient, loader, campaignTTL)
	} else {
		registry = memory.NewCampaignRegistry(loader, campaignTTL)
	}

	var store app.ResponseStore
	var reader app.ResponseReader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := pgstore.NewResponseStore(pool)
		store, reader = pg, pg
	} else {
		mem := memory.NewResponseStore()
		store, reader = mem, mem
	}

	feed := app.NewActivityFeed()
	ingest := app.NewIngestService(registry, store, feed)
	read := app.NewReadService(registry, reader)
	handler := transport.NewHandler(ingest, read, feed)
	auth := transport.AuthMiddleware([]byte(cfg.Auth.JWTSecret))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(auth),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting survey service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCampaigns provides a minimal campaign for databaseless demos; swap
// the loader for the Mongo-backed one in production.
func sampleCampaigns() map[string]domain.Campaign {
	return map[string]domain.Campaign{
		"urn:campaign:demo": {
			URN:   "urn:campaign:demo",
			Title: "Demo Campaign",
			Surveys: []domain.Survey{
				{
					ID:    "daily-checkin",
					Title: "Daily Check-in",
					Prompts: []domain.Prompt{
						{
							ID:           "mood",
							Type:         domain.PromptNumber,
							DisplayLabel: "Mood",
							DisplayType:  "measurement",
							Text:         "How is your mood right now, from 0 to 10?",
							Bounds:       &domain.Bounds{Min: 0, Max: 10},
						},
						{
							ID:           "sleep_quality",
							Type:         domain.PromptSingleChoice,
							DisplayLabel: "Sleep quality",
							DisplayType:  "category",
							Text:         "How did you sleep last night?",
							Skippable:    true,
							SkipLabel:    "Skip",
							Choices: domain.ChoiceSet{
								{Key: 0, Value: "poor", Label: "Poorly"},
								{Key: 1, Value: "ok", Label: "OK"},
								{Key: 2, Value: "well", Label: "Well"},
							},
						},
					},
				},
			},
		},
	}
}
