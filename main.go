package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
	captureconfig "github.com/muhammadolammi/jobmatchcapture/internal/config"
	"github.com/muhammadolammi/jobmatchcapture/internal/log"
)

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Error("empty " + key + " in environment")
		os.Exit(1)
	}
	return v
}

func fatal(msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()
	logger := log.Init(os.Getenv("LOG_LEVEL"))

	dbUrl := mustEnv("DB_URL")
	rabbitmqUrl := mustEnv("RABBITMQ_URL")
	r2Config := R2Config{
		AccountID:     mustEnv("R2_ACCCOUNT_ID"),
		Bucket:        mustEnv("R2_BUCKET"),
		AccessKey:     mustEnv("R2_ACCESS_KEY"),
		SecretKey:     mustEnv("R2_SECRET_KEY"),
		PublicBaseURL: mustEnv("R2_PUBLIC_BASE_URL"),
	}
	googleApiKey := os.Getenv("GOOGLE_API_KEY")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	workerCount := 3
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Error("invalid WORKER_COUNT in environment", "value", v)
			os.Exit(1)
		}
		workerCount = n
	}

	captureCfg := captureconfig.Default()
	if path := os.Getenv("CAPTURE_CONFIG"); path != "" {
		c, err := captureconfig.Load(path)
		if err != nil {
			fatal("error loading capture config", err)
		}
		captureCfg = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", dbUrl)
	if err != nil {
		fatal("error opening db", err)
	}
	defer db.Close()
	store := newSQLStore(db)

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2Config.AccessKey, r2Config.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		fatal("error creating aws config", err)
	}
	objects := newR2Store(awsConfig, r2Config)

	conn, err := amqp.Dial(rabbitmqUrl)
	if err != nil {
		fatal("error connecting to RabbitMQ", err)
	}
	defer conn.Close()
	pub, err := newRabbitPublisher(conn)
	if err != nil {
		fatal("error setting up RabbitMQ", err)
	}

	poses, err := newPoseClassifier(ctx, captureCfg, googleApiKey)
	if err != nil {
		fatal("error creating pose classifier", err)
	}
	uploader := &photoUploader{
		objects:   objects,
		photos:    store,
		publisher: pub,
		now:       time.Now,
		logger:    logger,
	}
	registry, err := capture.NewRegistry(captureOptions(captureCfg, newMediaDevice(captureCfg, logger), poses, uploader, logger))
	if err != nil {
		fatal("error creating capture registry", err)
	}
	defer registry.CloseAll()
	go registry.RunSweeper(ctx)

	if workerCount > 0 {
		if googleApiKey == "" {
			log.Error("empty GOOGLE_API_KEY in env")
			os.Exit(1)
		}
		analyzer, err := newAgentAnalyzer(googleApiKey, "resume_screener")
		if err != nil {
			fatal("failed to create agent", err)
		}
		workerConfig := &WorkerConfig{
			Store:       store,
			Objects:     objects,
			Publisher:   pub,
			Analyzer:    analyzer,
			RABBITMQUrl: rabbitmqUrl,
			Logger:      logger,
		}
		log.Info("starting consumer worker pool", "workers", workerCount)
		go workerConfig.StartConsumerWorkerPool(ctx, workerCount)
	}

	app := newApp(&apiConfig{
		Registry:  registry,
		Store:     store,
		Objects:   objects,
		Publisher: pub,
		Logger:    logger,
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Warn("error shutting down http server", "error", err)
		}
	}()

	log.Info("🌐 portal listening", "port", port, "camera", captureCfg.Camera.Type, "classifier", captureCfg.Classifier.Type)
	if err := app.Listen(":" + port); err != nil {
		fatal("http server stopped", err)
	}
}
