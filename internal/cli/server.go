package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizbox-service/internal/app"
	"quizbox-service/internal/auth"
	"quizbox-service/internal/config"
	"quizbox-service/internal/domain"
	"quizbox-service/internal/infra/memory"
	pginfra "quizbox-service/internal/infra/postgres"
	redisinfra "quizbox-service/internal/infra/redis"
	"quizbox-service/internal/notify"
	transport "quizbox-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quizbox server",
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

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	// Each store falls back to its in-memory variant so the binary still runs
	// with zero backends configured.
	var (
		catalog     app.QuizCatalog
		loader      memory.QuizLoader
		leaderboard app.LeaderboardStore
		library     app.LibraryStore
		users       interface {
			auth.UserStore
			app.UserDirectory
		}
		chatStore  app.ChatStore
		content    app.ContentStore
		admissions app.AdmissionStore
		streams    app.StreamStore
	)
	if pool != nil {
		quizStore := pginfra.NewQuizStore(pool)
		catalog, loader = quizStore, quizStore
		leaderboard = pginfra.NewLeaderboard(pool)
		library = pginfra.NewLibraryStore(pool)
		users = pginfra.NewUserStore(pool)
		chatStore = pginfra.NewChatStore(pool)
		content = pginfra.NewContentStore(pool)
		admissions = pginfra.NewAdmissionStore(pool)
		streams = pginfra.NewStreamStore(pool)
	} else {
		quizStore := memory.NewQuizStore(sampleQuizzes())
		catalog, loader = quizStore, quizStore
		leaderboard = memory.NewLeaderboard()
		library = memory.NewLibraryStore()
		users = memory.NewUserStore()
		chatStore = memory.NewChatStore()
		contentStore := memory.NewContentStore()
		content, admissions = contentStore, contentStore
		streams = memory.NewStreamStore(sampleStreams())
	}

	var quizzes app.QuizRepository
	if redisClient != nil {
		quizzes = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}
	if pool == nil && redisClient != nil {
		// Redis-only deployments still get a durable-enough shared leaderboard.
		leaderboard = redisinfra.NewLeaderboard(redisClient)
	}

	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)
	secret := cfg.Auth.Secret
	if secret == "" {
		log.Println("auth secret not configured; using an insecure development secret")
		secret = "quizbox-dev-secret"
	}
	tokens := auth.NewManager(users, secret, tokenTTL)

	notifier, err := notify.NewAdmissionNotifier(ctx, cfg.Email.Region, cfg.Email.From, cfg.Email.To)
	if err != nil {
		return err
	}

	service := app.NewQuizService(quizzes, catalog, library, leaderboard, users)
	chat := app.NewChatBoard(chatStore)
	wsHandler := transport.NewWSHandler(service, chat, tokens)
	api := transport.NewAPI(service, content, admissions, streams, chat, tokens, notifier)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Router(wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizbox service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleStreams seeds the course tracks the institute offers so the stream
// browser is populated when running without Postgres.
func sampleStreams() []domain.Stream {
	names := []string{
		"RS-CIT", "RS-CFA", "PGDCA", "DCA", "Tally",
		"Basic Computer", "Computer Instructor", "Information Assistant",
	}
	out := make([]domain.Stream, 0, len(names))
	for _, name := range names {
		out = append(out, domain.Stream{
			ID:   strings.ToLower(strings.ReplaceAll(name, " ", "-")),
			Name: name,
		})
	}
	return out
}

// sampleQuizzes provides minimal quiz content for running without Postgres.
func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:          1,
			Title:       "General Knowledge Warm-up",
			Description: "A quick practice round",
			Daily:       true,
			Home:        true,
			Questions: []domain.Question{
				{
					Prompt:       "What is 2 + 2?",
					Options:      []string{"3", "4", "5"},
					CorrectIndex: 1,
					Explanation:  "Basic arithmetic: 2 + 2 = 4.",
				},
			},
		},
	}
}
