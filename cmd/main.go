package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"loginsight-backend/config"
	_ "loginsight-backend/docs" // This will be created by swag
	"loginsight-backend/internal/controller"
	"loginsight-backend/internal/events"
	"loginsight-backend/internal/llm"
	"loginsight-backend/internal/metadata"
	"loginsight-backend/internal/scheduler"
	"loginsight-backend/internal/search"
	"loginsight-backend/internal/service"
	"loginsight-backend/internal/store"
)

// @title           LogInsight API
// @version         1.0
// @description     Natural-language log analytics over OpenSearch and Elasticsearch. Ask questions about your logs in plain language; the service analyzes intent, selects an index, synthesizes and executes a search query with automatic repair retries, and returns an analysis report with chart descriptors.

// @contact.name   API Support Team
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         chat
// @tag.description  Chat sessions and natural-language log queries

// @tag.name         catalog
// @tag.description  Index catalog and connection profile administration

func main() {
	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			llm.NewInvoker,
			NewCatalog,
			NewMetadataGateway,
			search.NewGateway,
			events.NewPostgresEventStore,
			NewProgressSink,
			NewConversationStore,
			service.NewIntentAnalyzer,
			service.NewIndexSelector,
			service.NewQuerySynthesizer,
			service.NewChartSynthesizer,
			service.NewAnalysisSynthesizer,
			NewOrchestrator,
			controller.NewChatController,
			controller.NewCatalogController,
		),
		fx.Invoke(
			RegisterAPIRoutes,
			RegisterScheduler,
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}
	log.Info().Msg("Exiting.")
}

func NewConfig() (*config.Config, error) {
	return config.NewConfig()
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Add your frontend URLs
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	chatController *controller.ChatController,
	catalogController *controller.CatalogController,
) {
	if chatController != nil {
		controller.RegisterChatRoutes(router, chatController)
	} else {
		log.Warn().Msg("ChatController not provided, skipping chat API routes.")
	}

	if catalogController != nil {
		controller.RegisterCatalogRoutes(router, catalogController)
	} else {
		log.Warn().Msg("CatalogController not provided")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Factory Functions ---

// NewCatalog stacks the in-memory snapshot cache on the MySQL-backed catalog.
func NewCatalog(cfg *config.Config) (*metadata.CachedGateway, error) {
	inner, err := metadata.NewMySQLGateway(cfg)
	if err != nil {
		return nil, err
	}
	return metadata.NewCachedGateway(inner), nil
}

// NewMetadataGateway exposes the cached catalog under the interface the
// services depend on.
func NewMetadataGateway(catalog *metadata.CachedGateway) metadata.Gateway {
	return catalog
}

// NewProgressSink fans progress events out to the live progress feed, the
// persistent event store and, when a topic is configured, to Kafka.
func NewProgressSink(lc fx.Lifecycle, cfg *config.Config, eventStore *events.PostgresEventStore) (events.Sink, error) {
	feed := events.NewChannelSink(cfg.Events.BufferSize)
	startProgressFeed(lc, feed)

	sinks := []events.Sink{feed, eventStore}
	if cfg.Kafka.EventsTopic != "" {
		kafkaSink, err := events.NewKafkaSink(lc, cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, kafkaSink)
	} else {
		log.Info().Msg("No Kafka events topic configured, progress events go to the event store only")
	}
	return events.NewMultiSink(sinks...), nil
}

func NewConversationStore(cfg *config.Config) store.ConversationStore {
	return store.NewInMemoryConversationStore(cfg.History.Window)
}

func NewOrchestrator(
	analyzer service.IntentAnalyzer,
	selector service.IndexSelector,
	synthesizer service.QuerySynthesizer,
	charts service.ChartSynthesizer,
	analysis service.AnalysisSynthesizer,
	catalog metadata.Gateway,
	conversations store.ConversationStore,
	sink events.Sink,
	cfg *config.Config,
) service.Orchestrator {
	return service.NewOrchestrator(analyzer, selector, synthesizer, charts, analysis, catalog, conversations, sink, cfg.History.ContextTurns)
}

// startProgressFeed drains the buffered progress feed into the structured
// log, decoupling pipeline workers from the presentation side. Insertion
// never blocks on this consumer; a full buffer drops with a warning instead.
func startProgressFeed(lc fx.Lifecycle, feed *events.ChannelSink) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msg("Starting progress feed goroutine")
			go feed.DrainWith(ctx, func(event events.Event) {
				log.Info().
					Str("session", event.SessionID).
					Str("stage", event.Stage).
					Str("status", string(event.Status)).
					Msg("Pipeline progress")
			})
			return nil
		},
		OnStop: func(context.Context) error {
			log.Info().Msg("Signaling progress feed goroutine to stop...")
			cancel()
			return nil
		},
	})
}

// --- Invoker Functions ---

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config, catalog *metadata.CachedGateway) {
	scheduler.NewScheduler(lc, cfg, catalog)
}
