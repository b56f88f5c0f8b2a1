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

	"edudash-assessment-service/internal/app"
	"edudash-assessment-service/internal/domain"
	pgstore "edudash-assessment-service/internal/infra/postgres"
	pgmigrations "edudash-assessment-service/internal/infra/postgres/migrations"
	infraredis "edudash-assessment-service/internal/infra/redis"
	"edudash-assessment-service/internal/session"
)

func TestAssessmentFlowEndToEnd(t *testing.T) {
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

	loader := pgstore.NewQuizLoader(pool)
	attempts := pgstore.NewAttemptStore(pool, loader, session.DefaultPassThreshold)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	handoff := infraredis.NewResultHandoff(redisClient, 5*time.Minute)

	service := app.NewAssessmentService(sessionStore, quizRepo, attempts, handoff, attempts, app.Config{
		SubmitTimeout: 5 * time.Second,
	})

	snap, err := service.StartSession(ctx, "quiz-1", "student-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if snap.State != domain.StateActive {
		t.Fatalf("state = %s, want active", snap.State)
	}

	if err := service.SaveAnswer(ctx, snap.SessionID, "q1", "4"); err != nil {
		t.Fatalf("save answer q1: %v", err)
	}
	if err := service.SaveAnswer(ctx, snap.SessionID, "q2", "Paris"); err != nil {
		t.Fatalf("save answer q2: %v", err)
	}

	result, err := service.Submit(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.EarnedMarks != 3 || result.Percentage != 100 || !result.Passed {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Unsynced {
		t.Fatalf("submission should have persisted, got degraded result")
	}

	// The attempt row survives the session.
	stored, ok, err := attempts.ResultFor(ctx, "quiz-1", "student-1")
	if err != nil {
		t.Fatalf("result for: %v", err)
	}
	if !ok {
		t.Fatalf("no persisted attempt found")
	}
	if stored.AttemptID != result.AttemptID {
		t.Fatalf("attempt id mismatch: %s vs %s", stored.AttemptID, result.AttemptID)
	}

	// Teacher feedback attached later shows up on the next fetch.
	if err := attempts.AttachFeedback(ctx, "quiz-1", result.AttemptID, "q2", "Nicely done."); err != nil {
		t.Fatalf("attach feedback: %v", err)
	}
	annotated, err := attempts.FetchResult(ctx, "quiz-1", result.AttemptID)
	if err != nil {
		t.Fatalf("fetch annotated: %v", err)
	}
	if annotated.Feedback[1].TeacherFeedback != "Nicely done." {
		t.Fatalf("expected teacher feedback persisted, got %+v", annotated.Feedback[1])
	}

	// The handoff slot carries the result across pages.
	latest, ok, err := service.LatestResult(ctx)
	if err != nil {
		t.Fatalf("latest result: %v", err)
	}
	if !ok || latest.AttemptID != result.AttemptID {
		t.Fatalf("handoff slot mismatch: ok=%v latest=%+v", ok, latest)
	}

	// A retake is a fresh attempt with its own row and overwrites the
	// handoff slot.
	snap2, err := service.StartSession(ctx, "quiz-1", "student-1")
	if err != nil {
		t.Fatalf("second session: %v", err)
	}
	result2, err := service.Submit(ctx, snap2.SessionID)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if result2.AttemptID == result.AttemptID {
		t.Fatalf("retake reused attempt id %s", result.AttemptID)
	}
	if result2.Unsynced {
		t.Fatalf("second submission should have persisted, got degraded result")
	}
	latest2, ok, err := service.LatestResult(ctx)
	if err != nil || !ok {
		t.Fatalf("latest result after retake: ok=%v err=%v", ok, err)
	}
	if latest2.AttemptID != result2.AttemptID {
		t.Fatalf("handoff slot not overwritten: %s", latest2.AttemptID)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.QuizDefinition) {
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

	if _, err := db.ExecContext(ctx,
		`INSERT INTO quizzes (id, title, description, teacher_name, duration_seconds, deadline, total_marks)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		quiz.ID, quiz.Title, quiz.Description, quiz.TeacherName, quiz.DurationSeconds, quiz.Deadline, quiz.TotalMarks,
	); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	for i, q := range quiz.Questions {
		options := "[]"
		if len(q.Options) > 0 {
			raw, err := json.Marshal(q.Options)
			if err != nil {
				t.Fatalf("marshal options: %v", err)
			}
			options = string(raw)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO questions (id, quiz_id, prompt, question_type, options, correct_answer, marks, order_index)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO NOTHING`,
			q.ID, quiz.ID, q.Prompt, string(q.Type), options, q.CorrectAnswer, q.Marks, i,
		); err != nil {
			t.Fatalf("insert question %s: %v", q.ID, err)
		}
	}
}

func sampleQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:          "quiz-1",
		Title:       "Mixed Review",
		TeacherName: "Ms. Hill",
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "What is 2 + 2?",
				Type:          domain.MultipleChoice,
				Options:       []string{"3", "4", "5"},
				CorrectAnswer: "4",
				Marks:         1,
			},
			{
				ID:            "q2",
				Prompt:        "Capital of France?",
				Type:          domain.ShortAnswer,
				CorrectAnswer: "Paris",
				Marks:         2,
			},
		},
		DurationSeconds: 600,
		Deadline:        time.Now().Add(time.Hour).UTC(),
		TotalMarks:      3,
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
