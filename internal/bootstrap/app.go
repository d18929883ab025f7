package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/analyses"
	"venture-backend/internal/llm"
	"venture-backend/internal/llm/anthropic"
	"venture-backend/internal/llm/gateway"
	"venture-backend/internal/llm/openai"
	"venture-backend/internal/llm/perplexity"
	"venture-backend/internal/plans"
	"venture-backend/internal/queue"
	"venture-backend/internal/sections"
	"venture-backend/internal/shared/config"
	"venture-backend/internal/shared/server"
	"venture-backend/internal/shared/storage/db"
	"venture-backend/internal/shared/storage/object"
	localstore "venture-backend/internal/shared/storage/object/local"
	s3store "venture-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies wired once at startup.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	PlansRepo    plans.Repo
	AnalysesRepo analyses.Repo

	PlansService    *plans.Service
	AnalysesService *analyses.Service

	// AnalysisProcessor allows callers to override analysis processing for tests.
	AnalysisProcessor AnalysisProcessor

	PlanHandler     *plans.Handler
	AnalysisHandler *analyses.Handler
}

// AnalysisProcessor runs the full pipeline for one analysis ID.
type AnalysisProcessor interface {
	ProcessAnalysis(ctx context.Context, analysisID string) error
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	// A broken dependency graph means no analysis can ever resolve; refuse
	// to start instead.
	if err := sections.VerifyGraph(); err != nil {
		return nil, fmt.Errorf("section graph: %w", err)
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AnalysisHandler: app.AnalysisHandler,
		PlanHandler:     app.PlanHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	switch cfg.QueueBackend {
	case "sqs":
		return queue.NewSQSClient(ctx, cfg.SQSQueueURL)
	case "redis":
		return queue.NewStreamsQueue(ctx, queue.StreamsConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: "api-1",
		})
	default:
		return nil, nil
	}
}

// BuildGateway wires one client per provider class from env API keys. A class
// without a key falls back to the general client; with no keys at all the
// placeholder client keeps dev servers bootable.
func BuildGateway(cfg config.Config) (*gateway.Gateway, error) {
	timeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second

	general := llm.Client(llm.PlaceholderClient{})
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		client, err := openai.NewClient(key, cfg.OpenAIModel, timeout)
		if err != nil {
			return nil, err
		}
		general = client
	}

	var reasoning llm.Client
	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		client, err := anthropic.NewClient(key, cfg.AnthropicModel, timeout)
		if err != nil {
			return nil, err
		}
		reasoning = client
	}

	var retrieval llm.Client
	if key := strings.TrimSpace(os.Getenv("PERPLEXITY_API_KEY")); key != "" {
		client, err := perplexity.NewClient(key, cfg.PerplexityModel, timeout)
		if err != nil {
			return nil, err
		}
		retrieval = client
	}

	return gateway.New(gateway.Config{
		Reasoning:   reasoning,
		Retrieval:   retrieval,
		General:     general,
		MaxInFlight: int64(cfg.MaxConcurrentSections),
	})
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var planRepo plans.Repo
	var analysisRepo analyses.Repo

	if app.DB != nil {
		planRepo = &plans.PGRepo{DB: app.DB}
		analysisRepo = &analyses.PGRepo{DB: app.DB}
	} else {
		planRepo = plans.NewMemoryRepo()
		analysisRepo = analyses.NewMemoryRepo()
	}

	planSvc := &plans.Service{Store: app.Store, Repo: planRepo}

	gw, err := BuildGateway(app.Config)
	if err != nil {
		return err
	}

	analysisSvc := &analyses.Service{
		Repo:     analysisRepo,
		Gateway:  gw,
		Plans:    planSvc,
		RawStore: app.Store,
		Queue:    app.Queue,
	}

	app.PlansRepo = planRepo
	app.AnalysesRepo = analysisRepo
	app.PlansService = planSvc
	app.AnalysesService = analysisSvc
	app.AnalysisProcessor = analysisSvc
	app.PlanHandler = plans.NewHandler(planSvc)
	app.AnalysisHandler = analyses.NewHandler(analysisSvc)

	return nil
}
