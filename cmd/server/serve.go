package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vedran77/arena/internal/config"
	"github.com/vedran77/arena/internal/crypto"
	"github.com/vedran77/arena/internal/database"
	"github.com/vedran77/arena/internal/metrics"
	"github.com/vedran77/arena/internal/repository/memory"
	postgresrepo "github.com/vedran77/arena/internal/repository/postgres"
	"github.com/vedran77/arena/internal/repository/redisstore"
	"github.com/vedran77/arena/internal/service"
	"github.com/vedran77/arena/internal/transport/http/handlers"
	"github.com/vedran77/arena/internal/transport/http/middleware"
	"github.com/vedran77/arena/internal/transport/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the event stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := serve(cmd.Context(), cfg, logger); err != nil {
			logger.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

// openStore builds the storage gateway for the configured driver. The
// returned func releases its connections.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Store, func(), error) {
	var (
		store   service.Store
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Database.Driver {
	case "postgres":
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return store, nil, err
		}
		closers = append(closers, pool.Close)
		logger.Info("connected to database", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))

		store = service.Store{
			Tx:       database.NewTransactor(pool),
			Users:    postgresrepo.NewUserRepo(pool),
			Friends:  postgresrepo.NewFriendRepo(pool),
			Channels: postgresrepo.NewChannelRepo(pool),
			Messages: postgresrepo.NewMessageRepo(pool),
		}
	default:
		logger.Warn("using in-memory storage, state is lost on restart")
		db := memory.NewDB()
		store = service.Store{
			Tx:       db,
			Users:    memory.NewUserRepo(db),
			Friends:  memory.NewFriendRepo(db),
			Channels: memory.NewChannelRepo(db),
			Messages: memory.NewMessageRepo(db),
		}
	}

	if cfg.Redis.Enabled {
		client, err := redisstore.NewClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, logger)
		if err != nil {
			cleanup()
			return store, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		store.Mutes = redisstore.NewMuteStore(client)
	} else {
		store.Mutes = memory.NewMuteStore()
	}

	return store, cleanup, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	hub := ws.NewHub(logger, m)
	hasher := crypto.NewHasher(crypto.DefaultParams)
	deps := service.Deps{
		Store:   store,
		Hasher:  hasher,
		Bus:     ws.NewHubNotifier(hub, store.Channels),
		Locks:   service.NewChannelLocks(),
		Logger:  logger,
		Metrics: m,
	}

	authService := service.NewAuthService(store.Users, hasher, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	channelService := service.NewChannelService(deps)
	messageService := service.NewMessageService(deps)
	userService := service.NewUserService(deps)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, m.Handler())
	}

	handlers.Set{
		Auth:     handlers.NewAuthHandler(authService, logger),
		Channels: handlers.NewChannelHandler(channelService, logger),
		Messages: handlers.NewMessageHandler(messageService, logger),
		Users:    handlers.NewUserHandler(userService, logger),
		Direct:   handlers.NewDirectHandler(channelService, logger),
	}.Register(mux, middleware.Auth(authService.ParseToken))

	wsOpts := ws.Options{
		PingInterval:      cfg.WebSocket.PingInterval,
		WriteWait:         cfg.WebSocket.WriteWait,
		SendBuffer:        cfg.WebSocket.SendBuffer,
		MaxMessageSize:    cfg.WebSocket.MaxMessageSize,
		MessagesPerSecond: cfg.WebSocket.MessagesPerSecond,
		Burst:             cfg.WebSocket.Burst,
	}
	mux.Handle("GET /ws", ws.NewHandler(hub, authService.ParseToken, userService, wsOpts, cfg.Server.AllowedOrigins))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           middleware.Recover(logger)(middleware.CORS(cfg.Server.AllowedOrigins)(mux)),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
