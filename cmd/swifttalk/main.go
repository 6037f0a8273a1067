package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	dbfiles "github.com/swifttalkhq/swifttalk/db"
	"github.com/swifttalkhq/swifttalk/internal/chat"
	"github.com/swifttalkhq/swifttalk/internal/config"
	"github.com/swifttalkhq/swifttalk/internal/contacts"
	"github.com/swifttalkhq/swifttalk/internal/db"
	"github.com/swifttalkhq/swifttalk/internal/handlers"
	"github.com/swifttalkhq/swifttalk/internal/logger"
	"github.com/swifttalkhq/swifttalk/internal/message"
	messageevent "github.com/swifttalkhq/swifttalk/internal/message/event"
	"github.com/swifttalkhq/swifttalk/internal/ratelimit"
	"github.com/swifttalkhq/swifttalk/internal/server"
	"github.com/swifttalkhq/swifttalk/internal/users"
	"github.com/swifttalkhq/swifttalk/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "swifttalk",
		Short: "SwiftTalk chat server",
	}
	rootCmd.PersistentFlags().String("config", "", "path to config.toml (defaults to CONFIG_PATH env)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			runServer(configPath)
			return nil
		},
	}
	rootCmd.AddCommand(serveCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|version|force N]",
		Short: "Apply or roll back database migrations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return runMigrate(configPath, args[0], args[1:])
		},
	}
	rootCmd.AddCommand(migrateCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("SwiftTalk %s\n", version.GetInfo())
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (config.Config, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runMigrate(configPath, command string, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	migrations, err := fs.Sub(dbfiles.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return db.RunMigrate(logger.L, cfg.Postgres, migrations, command, args)
}

func runServer(configPath string) {
	fx.New(
		fx.Provide(
			func() (config.Config, error) { return loadConfig(configPath) },
			provideLogger,

			provideDBConn,
			provideUserStore,
			provideContactStore,
			provideMessageLog,
			provideLoginLimiter,
			messageevent.NewHub,

			users.NewService,
			provideContactService,
			message.NewStore,
			chat.NewService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(handlers.NewUsersHandler),
			provideServerHandler(handlers.NewContactsHandler),
			provideServerHandler(handlers.NewConversationsHandler),

			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideUserStore(conn *pgxpool.Pool) users.Store {
	return users.NewPGStore(conn)
}

func provideContactStore(conn *pgxpool.Pool) contacts.Store {
	return contacts.NewPGStore(conn)
}

func provideMessageLog(conn *pgxpool.Pool) message.Log {
	return message.NewPGLog(conn)
}

func provideContactService(log *slog.Logger, store contacts.Store, userService *users.Service) *contacts.Service {
	return contacts.NewService(log, store, userService)
}

func provideLoginLimiter(cfg config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst, 0)
}

func provideAuthHandler(log *slog.Logger, userService *users.Service, cfg config.Config, limiter *ratelimit.Limiter) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, userService, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL(), limiter)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting SwiftTalk %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				// blocks until shutdown; a graceful Stop surfaces as ErrServerClosed
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
