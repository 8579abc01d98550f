package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appcatalog "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application/identity"
	apporder "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application/sales"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/config"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/auth"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/cache"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/mpesa"
	infraobs "github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/persistence/gormstore"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/ratelimit"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/storage"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-storefront/app/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-storefront/app/internal/presentation/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := prometrics.New(registry, "")
	if err != nil {
		systemLogger.Fatal("metrics_register_failed", zap.Error(err))
	}

	oteltrace.InstallPropagator()
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), zaplogger.New(systemLogger), metrics)

	db, err := openDatabase(cfg, tel.Logger())
	if err != nil {
		systemLogger.Fatal("database_open_failed", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}

	// Redis backs the product cache and the payment rate limiter. Both are
	// optional; without REDIS_ADDR reads go straight to the database.
	var (
		redisClient  *redis.Client
		productCache appcatalog.ProductCache = appcatalog.NoCache{}
		limiter      httppresentation.RateLimiter
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			systemLogger.Warn("redis_unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		productCache = cache.NewProductCache(cache.New(redisClient, cfg.ServiceName+":cache:", cfg.Redis.CacheTTL), tel)
		limiter = ratelimit.NewLimiter(redisClient, cfg.ServiceName+":ratelimit:")
	}

	bus := outbox.NewBus(tel, outbox.WithHandlerContext(workerpresentation.WithEventContext))
	sales.New(bus, tel).Start()
	bus.Start(context.Background())

	gateway, err := mpesa.New(mpesa.Config{
		Environment:    cfg.Mpesa.Environment,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		PassKey:        cfg.Mpesa.PassKey,
		Timeout:        cfg.Mpesa.Timeout,
	}, &http.Client{}, tel)
	if err != nil {
		systemLogger.Fatal("mpesa_client_failed", zap.Error(err))
	}

	jwtConfig := auth.DefaultJWTConfig()
	jwtConfig.SecretKey = cfg.JWT.Secret
	jwtConfig.AccessTokenDuration = cfg.JWT.AccessTTL
	jwtConfig.RefreshTokenDuration = cfg.JWT.RefreshTTL
	if jwtConfig.SecretKey == "" {
		jwtConfig.SecretKey = uuid.NewString()
		systemLogger.Warn("jwt_secret_generated", zap.String("reason", "JWT_SECRET unset; tokens will not survive a restart"))
	}
	tokens := auth.NewJWTManager(jwtConfig)

	mediaURL := mediaBaseURL(cfg.PublicBaseURL, cfg.Media.URL)
	files := storage.NewLocalStore(cfg.Media.Root, mediaURL, id.UUID{})

	categories := gormstore.NewCategoryRepository(db)
	products := gormstore.NewProductRepository(db)
	orders := gormstore.NewOrderRepository(db)
	payments := gormstore.NewPaymentRepository(db)

	identitySvc := identity.NewService(gormstore.NewUserRepository(db), auth.NewPasswordHasher(), tokens, tel)
	if cfg.Admin.Username != "" {
		if err := identitySvc.EnsureStaff(context.Background(), cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			systemLogger.Fatal("admin_bootstrap_failed", zap.String("username", cfg.Admin.Username), zap.Error(err))
		}
	}

	svc := httppresentation.Services{
		Categories:      appcatalog.NewCategoryService(categories, productCache, tel),
		Products:        appcatalog.NewProductService(products, categories, files, productCache, tel),
		Identity:        identitySvc,
		CreateOrder:     apporder.NewCreateOrderUseCase(orders, bus, tel),
		ListOrders:      apporder.NewListOrdersUseCase(orders, tel),
		GetOrder:        apporder.NewGetOrderUseCase(orders, tel),
		InitiatePayment: apppayment.NewInitiatePaymentUseCase(gateway, payments, orders, bus, cfg.Mpesa.CallbackURL, tel),
		HandleCallback:  apppayment.NewHandleCallbackUseCase(payments, bus, tel),
		GetPayment:      apppayment.NewGetPaymentUseCase(payments, tel),
	}

	handler := httppresentation.NewServer(svc, httppresentation.Options{
		Auth:           tokens,
		Limiter:        limiter,
		PayRateLimit:   cfg.PayRateLimit,
		PayRateWindow:  cfg.PayRateWindow,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MediaURL:       files.URL,
		ServeMedia:     cfg.Debug,
		MediaRoot:      cfg.Media.Root,
		MediaPrefix:    cfg.Media.URL,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Health:         func(ctx context.Context) error { return gormstore.Ping(ctx, db) },
		RequestID:      id.UUID{}.New,
	}, tel)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.Env),
			zap.String("db_driver", cfg.DB.Driver),
			zap.Bool("redis", redisClient != nil),
			zap.String("mpesa_environment", cfg.Mpesa.Environment),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	// Steps run in order: stop taking requests, drain events, then close stores.
	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"storefront": func(ctx context.Context) error {
			var errs []error
			if err := server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("http server: %w", err))
			}
			if err := bus.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("event bus: %w", err))
			}
			if redisClient != nil {
				if err := redisClient.Close(); err != nil {
					errs = append(errs, fmt.Errorf("redis: %w", err))
				}
			}
			if err := gormstore.Close(db); err != nil {
				errs = append(errs, fmt.Errorf("database: %w", err))
			}
			if err := errors.Join(errs...); err != nil {
				systemLogger.Error("shutdown_error", zap.Error(err))
				return err
			}
			systemLogger.Info("http_server_stopped")
			return nil
		},
	})
	code := <-wait
	_ = baseLogger.Sync()
	os.Exit(code)
}

func openDatabase(cfg *config.Config, log observability.Logger) (*gorm.DB, error) {
	opts := gormstore.Options{
		Driver:        cfg.DB.Driver,
		Logger:        log,
		SlowThreshold: 200 * time.Millisecond,
	}
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		opts.DSN = cfg.DB.PostgresDSN()
	default:
		opts.DSN = cfg.DB.SQLiteDSN()
	}
	return gormstore.Open(opts)
}

// mediaBaseURL makes MEDIA_URL absolute against PUBLIC_BASE_URL unless it
// already names a host.
func mediaBaseURL(publicBase, mediaURL string) string {
	if u, err := url.Parse(mediaURL); err == nil && u.IsAbs() {
		return mediaURL
	}
	return strings.TrimSuffix(publicBase, "/") + "/" + strings.TrimPrefix(mediaURL, "/")
}
