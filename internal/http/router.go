package http

import (
	"context"
	"time"

	"github.com/gathrio/gathrio/internal/auth"
	"github.com/gathrio/gathrio/internal/cache"
	"github.com/gathrio/gathrio/internal/config"
	"github.com/gathrio/gathrio/internal/http/handlers"
	"github.com/gathrio/gathrio/internal/http/middlewares"
	"github.com/gathrio/gathrio/internal/observability"
	"github.com/gathrio/gathrio/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type RouterDeps struct {
	Cfg      config.Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Metrics  *observability.Prom
	Registry *prometheus.Registry
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("gathrio-api"))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSOrigins))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())

	if deps.Metrics != nil {
		r.Use(deps.Metrics.GinHandleMiddleware())
	}

	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/swagger", handlers.SwaggerUI)
	r.StaticFile("/docs/openapi.yaml", "./docs/openapi.yaml")

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Metrics)
	eventsRepo := postgres.NewEventsRepo(deps.Pool, deps.Metrics)
	bookingsRepo := postgres.NewBookingsRepo(deps.Pool, deps.Metrics)
	jobsRepo := postgres.NewJobsRepo(deps.Pool, deps.Metrics)

	listCache := cache.NewEventListCache(deps.Redis, 30*time.Second, deps.Metrics)

	jwtManager := auth.NewManager(deps.Cfg.JWTSecret, deps.Cfg.AccessTTL(), deps.Cfg.RefreshTTL())
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	authHandler := handlers.NewAuthHandler(usersRepo, jobsRepo, jwtManager, deps.Cfg)
	eventsHandler := handlers.NewEventsHandler(eventsRepo, bookingsRepo, listCache)

	// credential endpoints get a tight per-IP window
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	apiLimiter := middlewares.NewRateLimiter(120, time.Minute)

	api := r.Group("/api")
	api.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	authGroup := api.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	events := api.Group("/events")
	{
		events.GET("", authMw.OptionalAuth(), eventsHandler.ListEvents)
		events.GET("/featured", eventsHandler.ListFeatured)
		events.GET("/live", eventsHandler.ListLive)
		events.GET("/my-events", authMw.RequireAuth(), eventsHandler.MyEvents)
		events.GET("/:id", eventsHandler.GetEventByID)

		events.POST("", authMw.RequireAuth(), eventsHandler.CreateEvent)
		events.PUT("/:id", authMw.RequireAuth(), eventsHandler.UpdateEvent)
		events.DELETE("/:id", authMw.RequireAuth(), eventsHandler.DeleteEvent)
	}

	return r
}
