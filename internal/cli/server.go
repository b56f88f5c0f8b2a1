package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"edudash-assessment-service/internal/app"
	"edudash-assessment-service/internal/config"
	"edudash-assessment-service/internal/domain"
	"edudash-assessment-service/internal/gateway"
	"edudash-assessment-service/internal/infra/memory"
	pgstore "edudash-assessment-service/internal/infra/postgres"
	redisstore "edudash-assessment-service/internal/infra/redis"
	"edudash-assessment-service/internal/session"
	transport "edudash-assessment-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var pgQuizzes *pgstore.QuizLoader
	if pool != nil {
		pgQuizzes = pgstore.NewQuizLoader(pool)
		loader = pgQuizzes
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	var handoff app.ResultHandoff
	if redisClient != nil {
		handoff = redisstore.NewResultHandoff(redisClient, redisTTL)
	} else {
		handoff = memory.NewResultHandoff()
	}

	passThreshold := cfg.Session.PassThreshold
	if passThreshold == 0 {
		passThreshold = session.DefaultPassThreshold
	}

	// Submission backing: a remote gateway when one is configured,
	// otherwise the local attempt store (postgres, falling back to
	// in-memory for development).
	var submitGateway session.Gateway
	var attempts app.AttemptLookup
	switch {
	case cfg.Backend.URL != "":
		submitGateway = gateway.NewHTTPGateway(cfg.Backend.URL, nil)
	case pool != nil:
		pgAttempts := pgstore.NewAttemptStore(pool, pgQuizzes, passThreshold)
		submitGateway = pgAttempts
		attempts = pgAttempts
	default:
		memAttempts := memory.NewAttemptStore(loader, passThreshold)
		submitGateway = memAttempts
		attempts = memAttempts
	}

	service := app.NewAssessmentService(store, quizRepo, submitGateway, handoff, attempts, app.Config{
		PassThreshold: passThreshold,
		SubmitTimeout: config.TTLDuration(cfg.Session.SubmitTimeout, 10*time.Second),
		TickInterval:  config.TTLDuration(cfg.Session.TickInterval, time.Second),
	})
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/quizzes/listing", func(w http.ResponseWriter, r *http.Request) {
		quizID := r.URL.Query().Get("quizId")
		studentID := r.URL.Query().Get("studentId")
		if quizID == "" || studentID == "" {
			http.Error(w, "missing quizId or studentId", http.StatusBadRequest)
			return
		}
		listing, err := service.QuizListing(r.Context(), quizID, studentID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrQuizNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listing)
	})
	mux.HandleFunc("/results/latest", func(w http.ResponseWriter, r *http.Request) {
		result, ok, err := service.LatestResult(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "no result available", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logrus.WithField("port", finalPort).Info("starting assessment service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logrus.Info("shutting down server...")
	case <-ctx.Done():
		logrus.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides a minimal quiz set for running without a
// database.
func sampleQuizzes() map[string]domain.QuizDefinition {
	return map[string]domain.QuizDefinition{
		"quiz-1": {
			ID:          "quiz-1",
			Title:       "Arithmetic Check",
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
					Prompt:        "The earth orbits the sun.",
					Type:          domain.TrueFalse,
					Options:       []string{"true", "false"},
					CorrectAnswer: "true",
					Marks:         1,
				},
			},
			DurationSeconds: 600,
			Deadline:        time.Now().Add(24 * time.Hour),
			TotalMarks:      2,
		},
	}
}
