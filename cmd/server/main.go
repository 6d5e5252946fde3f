package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"ppa/backend/internal/api"
	"ppa/backend/internal/auth"
	"ppa/backend/internal/config"
	"ppa/backend/internal/directory"
	"ppa/backend/internal/logging"
	"ppa/backend/internal/mcp"
	"ppa/backend/internal/repository"
	"ppa/backend/internal/services"
	"ppa/backend/internal/tls"
)

func main() {
	var (
		envFile string
		addr    string
	)

	rootCmd := &cobra.Command{
		Use:   "ppa-server",
		Short: "Procedure assignment and tracking service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), envFile, addr)
		},
	}
	rootCmd.Flags().StringVar(&envFile, "env", "", "Path to config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides TLS default)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile, addr string) error {
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"okta_client_id", cfg.Auth.ClientID,
		"directory_url", cfg.Directory.URL,
	)

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer dbPool.Close()

	if err := repository.Migrate(ctx, dbPool); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	logger.Info("Database connected")

	repo := repository.NewPostgresRepository(dbPool)

	dirClient := directory.NewHTTPClient(cfg.Directory.URL)
	catalog := services.NewCatalogService(repo)
	assignments := services.NewAssignmentService(repo, dirClient, dirClient)
	tracker := services.NewTrackerService(repo, dirClient, dirClient)

	logger.Info("Service layer initialized")

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("ppa-backend"))

	authz, err := auth.New(ctx, cfg, repo, logger)
	if err != nil {
		return fmt.Errorf("initializing auth: %w", err)
	}

	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	server := api.NewServer(catalog, assignments, tracker)
	e.GET("/healthz", server.HandleHealth)

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterHandlers(apiGroup, server)

	logger.Info("REST API handlers mounted")

	mcpServer := mcp.NewServer(assignments, tracker)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(cfg.Auth.OktaDomain)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(cfg.Auth.SwaggerClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(http.HandlerFunc(api.OAuthRedirectHandler)))

	if addr == "" {
		addr = ":8080"
		if cfg.TLS.Enable {
			addr = ":8443"
		}
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				serverErrors <- fmt.Errorf("tls enabled but cert/key file not provided")
				return
			}
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) && len(cfg.TLS.Hostnames) > 0 {
				if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
					logger.Error("failed to generate self-signed cert", "error", err)
				}
			}
			serverErrors <- srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- srv.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := srv.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
