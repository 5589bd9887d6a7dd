package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizbox-service/internal/app"
	"quizbox-service/internal/domain"
	pginfra "quizbox-service/internal/infra/postgres"
	pgmigrations "quizbox-service/internal/infra/postgres/migrations"
	infraredis "quizbox-service/internal/infra/redis"
)

func TestQuizSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	quizStore := pginfra.NewQuizStore(pool)
	quizRepo := infraredis.NewQuizRepository(redisClient, quizStore, 5*time.Minute)
	leaderboard := pginfra.NewLeaderboard(pool)
	users := pginfra.NewUserStore(pool)
	library := pginfra.NewLibraryStore(pool)

	if err := users.CreateUser(ctx, domain.User{
		ID: "u1", Email: "alice@example.com", Name: "Alice",
		Role: domain.RoleStudent, PasswordHash: "x", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	service := app.NewQuizService(quizRepo, quizStore, library, leaderboard, users)

	runSession := func() {
		engine, err := service.StartSession(ctx, 1, "u1", "Alice")
		if err != nil {
			t.Fatalf("start session: %v", err)
		}
		defer engine.Exit()

		if err := engine.Select(1); err != nil {
			t.Fatalf("select: %v", err)
		}
		if err := engine.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
		select {
		case <-engine.Completed():
		case <-time.After(5 * time.Second):
			t.Fatalf("session never completed")
		}
	}

	runSession()
	waitForScore(t, ctx, leaderboard, "u1", 1)

	// A second run of the same quiz merges additively into the same row.
	runSession()
	waitForScore(t, ctx, leaderboard, "u1", 2)

	top, err := leaderboard.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].DisplayName != "Alice" {
		t.Fatalf("unexpected leaderboard %+v", top)
	}

	// Library round trip against the real tables.
	if err := service.AddToLibrary(ctx, "u1", 1); err != nil {
		t.Fatalf("add to library: %v", err)
	}
	saved, err := service.Library(ctx, "u1")
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != 1 {
		t.Fatalf("unexpected library %+v", saved)
	}
}

func TestDoubtsChatPersistence(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	board := app.NewChatBoard(pginfra.NewChatStore(pool))

	original, err := board.Post(ctx, "u1", "Alice", domain.RoleStudent, "what is osmosis?", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	reply := &domain.ReplyContext{MessageID: original.ID, SenderName: "Alice", Text: original.Text}
	if _, err := board.Post(ctx, "u2", "Bob", domain.RoleAdmin, "diffusion of water", reply); err != nil {
		t.Fatalf("post reply: %v", err)
	}

	history, err := board.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ID != original.ID {
		t.Fatalf("unexpected history %+v", history)
	}
	if history[1].ReplyTo == nil || history[1].ReplyTo.MessageID != original.ID {
		t.Fatalf("reply context lost: %+v", history[1])
	}

	if err := board.Delete(ctx, "u2", domain.RoleAdmin, original.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	history, err = board.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 message after delete, got %d", len(history))
	}
}

func TestStreamCatalogPersistence(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pginfra.NewStreamStore(pool)

	stream, err := store.SaveStream(ctx, domain.Stream{ID: "rs-cit", Name: "RS-CIT"})
	if err != nil {
		t.Fatalf("save stream: %v", err)
	}
	if _, err := store.AddResource(ctx, domain.StreamResource{
		StreamID: stream.ID, Category: domain.CategoryBook, Title: "Computer Basics",
		URL: "https://example.com/basics.pdf",
	}); err != nil {
		t.Fatalf("add book: %v", err)
	}
	if _, err := store.AddResource(ctx, domain.StreamResource{
		StreamID: stream.ID, Category: domain.CategoryOldPaper, Title: "2024 Paper",
	}); err != nil {
		t.Fatalf("add paper: %v", err)
	}
	if _, err := store.AddResource(ctx, domain.StreamResource{StreamID: "missing"}); err != domain.ErrStreamNotFound {
		t.Fatalf("expected ErrStreamNotFound for unknown stream, got %v", err)
	}

	detail, err := store.StreamDetail(ctx, stream.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Counts[domain.CategoryBook] != 1 || detail.Counts[domain.CategoryOldPaper] != 1 {
		t.Fatalf("unexpected counts %+v", detail.Counts)
	}

	books, err := store.ListResources(ctx, stream.ID, domain.CategoryBook)
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Computer Basics" {
		t.Fatalf("unexpected books %+v", books)
	}

	// Deleting the stream cascades its resources at the database level.
	if err := store.DeleteStream(ctx, stream.ID); err != nil {
		t.Fatalf("delete stream: %v", err)
	}
	var remaining int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM stream_resources`).Scan(&remaining); err != nil {
		t.Fatalf("count resources: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected cascade delete, %d resources left", remaining)
	}
}

func waitForScore(t *testing.T, ctx context.Context, leaderboard *pginfra.Leaderboard, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		top, err := leaderboard.Top(ctx, 10)
		if err != nil {
			t.Fatalf("top: %v", err)
		}
		for _, entry := range top {
			if entry.UserID == userID && entry.TotalScore == want {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("user %s never reached score %d", userID, want)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quizbox", "POSTGRES_PASSWORD": "quizboxpass", "POSTGRES_DB": "quizboxdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quizbox:quizboxpass@%s:%s/quizboxdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	t.Helper()
	migrateDB(t, ctx, dsn)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    1,
		Title: "Warm-up",
		Daily: true,
		Questions: []domain.Question{
			{
				Prompt:       "What is 2 + 2?",
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				Explanation:  "Basic arithmetic.",
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
