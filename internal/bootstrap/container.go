package bootstrap

import (
	"context"
	"log"
	"os"

	"planhub-be/internal/config"
	"planhub-be/internal/controller"
	"planhub-be/internal/events"
	"planhub-be/internal/handler"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/pkg/mailer"
	"planhub-be/internal/repository/implementation"
	"planhub-be/internal/repository/memory"
	"planhub-be/internal/repository/unitofwork"
	"planhub-be/internal/service"
	"planhub-be/internal/websocket"
	"planhub-be/pkg/bundle"
	pktNats "planhub-be/pkg/nats"
	"planhub-be/pkg/payment"
	"planhub-be/pkg/quota"
	"planhub-be/pkg/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	AuthController     controller.IAuthController
	PlanController     controller.IPlanController
	PurchaseController controller.IPurchaseController
	PaymentController  controller.IPaymentController
	DownloadController controller.IDownloadController
	AdminController    controller.IAdminController

	// Services the CLI drives directly
	AuthService    service.IAuthService
	PaymentService service.IPaymentService

	// Background services (started by the serve command)
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	closers []func()
}

// Close releases broker connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newRedisClient(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	return rdb
}

func newGateways(cfg config.PaymentConfig) *payment.Registry {
	var gateways []payment.Gateway
	if cfg.Paystack.SecretKey != "" {
		gateways = append(gateways, payment.NewPaystackGateway(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, cfg.Paystack.Currency))
	}
	if cfg.Midtrans.ServerKey != "" {
		gateways = append(gateways, payment.NewMidtransGateway(cfg.Midtrans.ServerKey, cfg.Midtrans.Currency, cfg.Midtrans.IsProduction))
	}
	if len(gateways) == 0 {
		log.Printf("[WARN] No payment gateway configured, purchases will be rejected")
	}
	return payment.NewRegistry(gateways...)
}

func newFetcher(ctx context.Context, cfg config.StorageConfig) storage.Fetcher {
	router := &storage.Router{
		Local: storage.NewLocalFetcher(cfg.Root),
		HTTP:  storage.NewHTTPFetcher(cfg.HTTPTimeout),
	}
	if cfg.S3.IsEnabled() {
		s3Fetcher, err := storage.NewS3Fetcher(ctx, storage.S3Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			EndpointURL:     cfg.S3.EndpointURL,
		})
		if err != nil {
			log.Printf("[WARN] Failed to initialize S3 storage: %v", err)
		} else {
			router.S3 = s3Fetcher
		}
	}
	return router
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			sysLogger,
		)
	} else {
		emailService = mailer.NewNoopEmailService(sysLogger)
	}

	// 2. In-process mail queue
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	publisherService := service.NewPublisherService(cfg.App.MailTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.MailTopic, emailService, sysLogger)

	// 3. Brokers
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}
	eventPublisher := events.NewNatsPublisher(natsPub, sysLogger)

	rdb := newRedisClient(cfg.App.RedisURL)
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run(ctx)
	c.WebSocketHub = wsHub

	// 4. Domain services
	planCache := memory.NewPlanCache(cfg.App.PlanCacheTTL)
	gateways := newGateways(cfg.Payment)
	assembler := bundle.NewAssembler(newFetcher(ctx, cfg.Storage))
	quotaCounter := quota.NewCounter(rdb, cfg.Download.QuotaPrefix)

	authService := service.NewAuthService(uowFactory, cfg.Auth, eventPublisher, sysLogger)
	planService := service.NewPlanService(uowFactory, planCache, eventPublisher)
	purchaseService := service.NewPurchaseService(
		uowFactory,
		gateways,
		cfg.Payment.CallbackURL,
		eventPublisher,
		sysLogger,
	)
	completionService := service.NewCompletionService(uowFactory, gateways, planCache, eventPublisher, sysLogger)
	paymentService := service.NewPaymentService(uowFactory, gateways, completionService, sysLogger)
	downloadService := service.NewDownloadService(
		uowFactory,
		cfg.App.BaseURL,
		cfg.Download.TokenValidity,
		assembler,
		quotaCounter,
		publisherService,
		eventPublisher,
		sysLogger,
	)
	adminService := service.NewAdminService(uowFactory, sysLogger)

	c.AuthService = authService
	c.PaymentService = paymentService

	// 5. Notifications
	notifRepo := implementation.NewNotificationRepository(db)
	c.NotificationService = service.NewNotificationService(notifRepo, natsSub, wsHub, publisherService, wsLogger)
	c.NotificationHandler = handler.NewNotificationHandler(c.NotificationService, natsPub, wsHub, cfg.Auth.JWTSecret, wsLogger)

	// 6. Controllers
	secret := cfg.Auth.JWTSecret
	c.AuthController = controller.NewAuthController(authService, secret, cfg.Auth.RefreshTokenTTL, cfg.IsProduction())
	c.PlanController = controller.NewPlanController(planService, secret)
	c.PurchaseController = controller.NewPurchaseController(purchaseService, secret)
	c.PaymentController = controller.NewPaymentController(paymentService, secret)
	c.DownloadController = controller.NewDownloadController(downloadService, secret, os.TempDir(), sysLogger)
	c.AdminController = controller.NewAdminController(adminService, purchaseService, paymentService, secret)

	return c
}
