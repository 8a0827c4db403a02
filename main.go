package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SachinGupta0206/saas-contracts-dashboard/config"
	"github.com/SachinGupta0206/saas-contracts-dashboard/handler"
	"github.com/SachinGupta0206/saas-contracts-dashboard/middleware"
	"github.com/SachinGupta0206/saas-contracts-dashboard/pkg/logger"
	"github.com/SachinGupta0206/saas-contracts-dashboard/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "dashboard",
	Short:         "Contracts dashboard backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logger.Init(&logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		})
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ephemeral, _ := cmd.Flags().GetBool("ephemeral")
		return runServer(cfg, ephemeral)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the YAML config file")
	serveCmd.Flags().Bool("ephemeral", false, "keep the session in memory instead of the data directory")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads path. A missing default file falls back to built-in defaults;
// a missing explicit file is an error.
func loadConfig(path string) (*config.Config, error) {
	loaded, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == defaultConfigPath {
		return config.Default(), nil
	}
	return loaded, err
}

// app bundles the stores every entry point works against.
type app struct {
	sessions *service.SessionStore
	store    *service.ContractsStore
	closer   io.Closer
}

func newApp(cfg *config.Config, ephemeral bool) (*app, error) {
	var storage service.IdentityStorage
	var closer io.Closer
	if ephemeral {
		storage = service.NewMemoryStorage()
	} else {
		sqlite, err := service.OpenSQLiteStorage(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open session storage: %w", err)
		}
		storage, closer = sqlite, sqlite
	}

	fixtures, err := service.NewFixtureProvider(cfg)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	queue := service.NewUploadQueue(service.NewRandomSimulator(&cfg.Upload), cfg.Upload.AllowedExtensions)
	return &app{
		sessions: service.NewSessionStore(storage, &cfg.Auth),
		store:    service.NewContractsStore(fixtures, queue),
		closer:   closer,
	}, nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func newRouter(cfg *config.Config, a *app) *gin.Engine {
	authHandler := handler.NewAuthHandler(a.sessions)
	contractHandler := handler.NewContractHandler(a.store, cfg.Contracts.PageSize)
	uploadHandler := handler.NewUploadHandler(a.store)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(&cfg.Server))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	protected := api.Group("/")
	protected.Use(middleware.SessionAuth(a.sessions))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.GET("/contracts", contractHandler.List)
		protected.PUT("/contracts/filters", contractHandler.SetFilters)
		protected.PUT("/contracts/page", contractHandler.SetPage)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.POST("/uploads", uploadHandler.Upload)
		protected.GET("/uploads", uploadHandler.List)
		protected.DELETE("/uploads", uploadHandler.Clear)
		protected.GET("/uploads/events", uploadHandler.Events)
	}

	return router
}

func runServer(cfg *config.Config, ephemeral bool) error {
	a, err := newApp(cfg, ephemeral)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if identity, ok := a.sessions.RestoreSession(ctx); ok {
		slog.Info("restored session", "username", identity.Username)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     newRouter(cfg, a),
		ReadTimeout: 60 * time.Second,
		// No WriteTimeout: the upload event stream stays open.
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "fixtures", cfg.Fixtures.Source)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("start server: %w", err)
	case <-quit:
	}
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := shutdown(shutdownCtx, srv, a); err != nil {
		return err
	}

	slog.Info("server exited gracefully")
	return nil
}

// shutdown stops accepting requests, then lets in-flight upload batches
// settle within the same deadline.
func shutdown(ctx context.Context, srv *http.Server, a *app) error {
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := a.store.WaitUploads(ctx); err != nil {
		return fmt.Errorf("uploads still in flight at shutdown: %w", err)
	}
	return nil
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheMiddleware disables caching for API responses
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
