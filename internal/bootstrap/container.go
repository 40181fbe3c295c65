package bootstrap

import (
	"context"
	"fmt"
	"io"

	"insightdocs-be/internal/config"
	"insightdocs-be/internal/controller"
	"insightdocs-be/internal/handler"
	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/internal/pkg/workerpool"
	"insightdocs-be/internal/repository/memory"
	"insightdocs-be/internal/repository/unitofwork"
	"insightdocs-be/internal/service"
	"insightdocs-be/internal/websocket"
	"insightdocs-be/pkg/chatbot"
	"insightdocs-be/pkg/materializer"
	pktNats "insightdocs-be/pkg/nats"
	"insightdocs-be/pkg/storage"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ChatHandler        *handler.ChatHandler

	// Background services, started by main
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.SocketLogFilePath)
	c.Logger = sysLogger
	c.closers = append(c.closers, closerFunc(wsLogger.Sync))

	// 2. Blob storage
	storages, err := newStorageRegistry(ctx, cfg, sysLogger, c)
	if err != nil {
		return nil, err
	}

	// 3. Event bus: JetStream when reachable, in-process otherwise
	publisher, subscriber := newEventBus(cfg, sysLogger, c)

	// 4. Redis for cross-instance rooms
	rdb := newRedisClient(ctx, cfg, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, rdb)
	}
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 5. Services
	sessionCache := memory.NewChatSessionCache()
	pools := service.WorkerPools{
		Store:  workerpool.New(cfg.Worker.PoolSize),
		Remote: workerpool.New(cfg.Worker.AiPoolSize),
	}

	conversationService := service.NewConversationService(uowFactory, sessionCache)
	documentService := service.NewDocumentService(uowFactory, storages, conversationService, sessionCache, publisher, sysLogger)

	docMaterializer := materializer.New(storages, materializer.Config{
		DownloadTimeout: cfg.Materializer.DownloadTimeout,
		ChunkBytes:      cfg.Materializer.ChunkBytes,
	}, sysLogger)

	gemini := chatbot.NewGeminiClient(chatbot.GeminiConfig{
		ApiKey:  cfg.Gemini.ApiKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	})
	responder := chatbot.NewResponder(gemini, chatbot.RetryPolicy{
		MaxAttempts:      cfg.Gemini.UploadAttempts,
		IngestionTimeout: cfg.Gemini.IngestionTimeout,
		PollInterval:     cfg.Gemini.PollInterval,
		BackoffUnit:      cfg.Gemini.RetryBackoff,
	}, cfg.Gemini.ChatTimeout, sysLogger)

	orchestrator := service.NewChatOrchestrator(
		documentService,
		conversationService,
		docMaterializer,
		responder,
		c.WebSocketHub,
		pools,
		publisher,
		wsLogger,
	)

	c.ConsumerService = service.NewConsumerService(subscriber, storages, sessionCache, sysLogger)

	// 6. Transport
	c.DocumentController = controller.NewDocumentController(documentService, cfg.Auth.JwtSecret)
	c.ChatHandler = handler.NewChatHandler(orchestrator, cfg.Auth.JwtSecret, wsLogger)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			c.Logger.Warn("BOOTSTRAP", "Failed to close resource", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = c.Logger.Sync()
}

func newStorageRegistry(ctx context.Context, cfg *config.Config, log logger.ILogger, c *Container) (*storage.Registry, error) {
	local, err := storage.NewLocalStorage(cfg.Storage.LocalRoot)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	backends := []storage.Storage{local}

	if cfg.Storage.S3Endpoint != "" {
		s3, err := storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			Bucket:    cfg.Storage.S3Bucket,
			UseSSL:    cfg.Storage.S3UseSSL,
			Region:    cfg.Storage.S3Region,
			URLTTL:    cfg.Storage.URLTTL,
		})
		if err != nil {
			log.Warn("BOOTSTRAP", "S3 storage unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			backends = append(backends, s3)
		}
	}

	if cfg.Storage.GCSBucket != "" {
		gcs, err := storage.NewGCSStorage(ctx, storage.GCSConfig{
			Bucket: cfg.Storage.GCSBucket,
			URLTTL: cfg.Storage.URLTTL,
		})
		if err != nil {
			log.Warn("BOOTSTRAP", "GCS storage unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			backends = append(backends, gcs)
			c.closers = append(c.closers, gcs)
		}
	}

	return storage.NewRegistry(cfg.Storage.Backend, backends...)
}

func newEventBus(cfg *config.Config, log logger.ILogger, c *Container) (service.IEventPublisher, service.IEventSubscriber) {
	fallback := func(reason error) (service.IEventPublisher, service.IEventSubscriber) {
		log.Warn("BOOTSTRAP", "NATS unavailable, using in-process event bus", map[string]interface{}{"error": reason.Error()})
		bus := service.NewInProcessEventBus(log)
		c.closers = append(c.closers, bus)
		return bus, bus
	}

	nc, err := pktNats.Connect(cfg.App.NatsURL)
	if err != nil {
		return fallback(err)
	}

	stream := pktNats.StreamConfig{}
	publisher, err := pktNats.NewPublisher(nc, stream, log)
	if err != nil {
		nc.Close()
		return fallback(err)
	}
	subscriber, err := pktNats.NewSubscriber(nc, stream, log)
	if err != nil {
		nc.Close()
		return fallback(err)
	}

	c.closers = append(c.closers, closerFunc(func() error {
		subscriber.Close()
		return drain(nc)
	}))
	log.Info("BOOTSTRAP", "Connected to NATS", map[string]interface{}{"url": cfg.App.NatsURL})
	return publisher, subscriber
}

func drain(nc *nats.Conn) error {
	if err := nc.Drain(); err != nil {
		nc.Close()
		return err
	}
	return nil
}

// newRedisClient returns nil when redis is unreachable; rooms then stay local
// to this instance.
func newRedisClient(ctx context.Context, cfg *config.Config, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Redis unavailable, chat rooms are local to this instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
