package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"meno/internal/config"
	"meno/internal/handlers"
	"meno/internal/log"
	"meno/internal/metrics"
	"meno/internal/middleware"
	"meno/internal/realtime"
	"meno/internal/repositories"
	"meno/internal/routes"
	"meno/internal/services"
	"meno/internal/utils"
)

type Repositories struct {
	Users         repositories.UserRepository
	Chats         repositories.ChatRepository
	Contents      repositories.ContentRepository
	Reels         repositories.ReelRepository
	Notifications repositories.NotificationRepository
	Stories       repositories.StoryRepository
	Comments      repositories.CommentRepository
}

func PostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Users:         repositories.NewUserRepository(db),
		Chats:         repositories.NewChatRepository(db),
		Contents:      repositories.NewContentRepository(db),
		Reels:         repositories.NewReelRepository(db),
		Notifications: repositories.NewNotificationRepository(db),
		Stories:       repositories.NewStoryRepository(db),
		Comments:      repositories.NewCommentRepository(db),
	}
}

// App owns the hub, services and router for one process.
type App struct {
	cfg     *config.Config
	hub     *realtime.Hub
	stories *services.StoryService
	limiter *middleware.RateLimiter
	router  *gin.Engine
	log     zerolog.Logger
}

func New(cfg *config.Config, repos Repositories, images services.ImageSaver) *App {
	hub := realtime.NewHub()
	tokens := utils.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// === Services ===
	notifications := services.NewNotificationService(repos.Notifications, hub)
	chatService := services.NewChatService(repos.Chats, repos.Users, repos.Contents, repos.Reels, images, hub)
	userService := services.NewUserService(repos.Users, tokens, notifications)
	contentService := services.NewContentService(repos.Contents, images, notifications)
	reelService := services.NewReelService(repos.Reels, notifications)
	storyService := services.NewStoryService(repos.Stories, repos.Users)
	commentService := services.NewCommentService(repos.Comments, repos.Contents, repos.Reels, repos.Users, notifications)

	// === Handlers ===
	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(userService),
		Users:         handlers.NewUserHandler(userService),
		Contents:      handlers.NewContentHandler(contentService),
		Reels:         handlers.NewReelHandler(reelService),
		Stories:       handlers.NewStoryHandler(storyService),
		Comments:      handlers.NewCommentHandler(commentService),
		Chats:         handlers.NewChatHandler(chatService, hub),
		Notifications: handlers.NewNotificationHandler(notifications, hub),
	}

	// === Gin ===
	gin.SetMode(cfg.Server.Mode)
	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst, 2*time.Minute)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(metrics.GinMiddleware())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(limiter.Middleware())
	routes.SetupRoutes(router, h, tokens, cfg.Media.ImageDir, cfg.Media.URLPrefix)

	return &App{
		cfg:     cfg,
		hub:     hub,
		stories: storyService,
		limiter: limiter,
		router:  router,
		log:     log.WithComponent("app"),
	}
}

func (a *App) Handler() http.Handler { return a.router }

// Run serves HTTP and sweeps expired stories until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	defer a.limiter.Stop()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.stories.RunSweeper(sweepCtx, a.cfg.Stories.SweepInterval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	// Hijacked websocket connections are not tracked by the server.
	a.hub.CloseAll()
	return err
}

func requestLogger() gin.HandlerFunc {
	l := log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
