package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/biokiwi/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/config"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/database"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/queue"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/server"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/storage"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/util"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger/console"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/preassembly"
	pgxstore "github.com/OFFIS-RIT/biokiwi/backend/pkg/store/pgx"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load(true)
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	// metrics and health
	var (
		ready   atomic.Bool
		version atomic.Value
	)
	version.Store("")

	// database
	if err := database.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to migrate database", "err", err)
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pool.Close()

	ops := server.New(server.Params{
		DB:      pool,
		Ready:   ready.Load,
		Version: func() string { return version.Load().(string) },
	})
	go server.Run(ctx, ops, cfg.MetricsAddr)

	// s3
	var s3Client *awss3.Client
	if cfg.AWS.Enabled() {
		s3Client, err = storage.NewS3Client(ctx, cfg.AWS)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
	}

	// ontology
	onto, err := bootstrap.LoadOntology(ctx, cfg, bootstrap.Deps{S3: s3Client, Pool: pool})
	if err != nil {
		logger.Fatal("Failed to load ontology", "err", err)
	}
	defer onto.Close()
	if n := onto.Diagnostics.Len(); n > 0 {
		logger.Warn("[Ontology] Build diagnostics", onto.Diagnostics.KeyValues()...)
	}

	preassembler := preassembly.NewPreassembler(preassembly.NewPreassemblerParams{
		Ontology:       onto.Graph,
		NamespaceOrder: cfg.NamespaceOrder,
		Parallel:       cfg.Workers,
		Standardize:    cfg.Standardize,
	})

	// rabbitmq
	conn, err := queue.Init(cfg.RabbitMQ)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.PreassemblyQueue}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	processorParams := queue.NewProcessorParams{
		Preassembler: preassembler,
		Storage:      pgxstore.NewAssemblyDBStorageWithConnection(pool),
		Bucket:       cfg.AWS.Bucket,
		Events:       queue.ChannelPublisher{Channel: ch},
	}
	if s3Client != nil {
		processorParams.Objects = s3Client
	}
	processor := queue.NewProcessor(processorParams)

	// prefetch 1, batches run one at a time
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.PreassemblyQueue,
		queue.PreassemblyQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.PreassemblyQueue, "err", err)
	}

	version.Store(onto.Version)
	ready.Store(true)
	logger.Info("Listening for messages", "queue", queue.PreassemblyQueue, "ontology", onto.Version)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Error("Message channel closed", "queue", queue.PreassemblyQueue)
				return
			}
			handle(ctx, processor, ch, msg, cfg.MaxRetries)
		}
	}
}

func handle(ctx context.Context, processor *queue.Processor, ch *amqp.Channel, msg amqp.Delivery, maxRetries int) {
	startTime := time.Now()
	logger.Info("Received message", "queue", queue.PreassemblyQueue)

	err := processor.ProcessPreassembleMessage(ctx, msg.Body)
	switch {
	case err == nil:
		if err := msg.Ack(false); err != nil {
			logger.Error("Failed to ack message", "err", err)
		}
		logger.Info("Message processed successfully", "queue", queue.PreassemblyQueue)
	case errors.Is(err, queue.ErrInvalidMessage):
		logger.Error("Rejecting invalid message", "err", err)
		queue.HandleProcessingError(ch, msg, queue.PreassemblyQueue, 0)
	case ctx.Err() != nil:
		// shutting down, let the broker redeliver
		_ = msg.Nack(false, true)
		return
	default:
		logger.Error("Error processing message", "queue", queue.PreassemblyQueue, "err", err)
		queue.HandleProcessingError(ch, msg, queue.PreassemblyQueue, maxRetries)
	}

	processingDuration := time.Since(startTime)
	hours := int(processingDuration.Hours())
	minutes := int(processingDuration.Minutes()) % 60
	seconds := int(processingDuration.Seconds()) % 60
	logger.Info(
		"Processing time",
		"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
	)
}
