package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"pubquiz-service/internal/bank"
	"pubquiz-service/internal/clock"
	"pubquiz-service/internal/config"
	"pubquiz-service/internal/engine"
	"pubquiz-service/internal/store"
	memorystore "pubquiz-service/internal/store/memory"
	redisstore "pubquiz-service/internal/store/redis"
	transport "pubquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	listenPort := portFlag
	if listenPort == "" {
		listenPort = cfg.Server.Port
	}
	if listenPort == "" {
		listenPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	var docs store.DocumentStore
	if redisClient != nil {
		docs = redisstore.NewStore(redisClient, cfg.SessionTTL())
	} else {
		docs = memorystore.NewStore()
	}
	rooms := store.NewRoomStore(docs)

	sync := clock.NewSystemSynchronizer()
	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	go sync.Run(syncCtx, rooms, cfg.ClockSyncInterval())

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader bank.Loader = bank.NewStaticLoader(sampleQuestionSets())
	if pool != nil {
		loader = bank.NewPostgresLoader(pool)
	}
	var sets bank.Repository
	if redisClient != nil {
		sets = bank.NewRedisRepository(redisClient, loader, cfg.BankTTL())
	} else {
		sets = bank.NewCachedRepository(loader, cfg.BankTTL())
	}

	eng := engine.New(rooms, sync, cfg.Quiz.RevealMode)
	wsHandler := transport.NewWSHandler(eng, sets)
	roomHandler := transport.NewRoomHandler(eng)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	roomHandler.Register(mux)

	// No WriteTimeout: websocket connections stay open indefinitely.
	server := &http.Server{
		Addr:        ":" + listenPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("pubquiz service listening on :%s (reveal mode: %v)", listenPort, cfg.Quiz.RevealMode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("signal received, shutting down")
	case <-ctx.Done():
		log.Println("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
