package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/examlink/internal/api/http"
	"github.com/mind-engage/examlink/internal/audit"
	auth "github.com/mind-engage/examlink/internal/auth/middleware"
	"github.com/mind-engage/examlink/internal/config"
	"github.com/mind-engage/examlink/internal/db"
	"github.com/mind-engage/examlink/internal/exam"
	"github.com/mind-engage/examlink/internal/grading"
	"github.com/mind-engage/examlink/internal/lib/slogcustom"
	"github.com/mind-engage/examlink/internal/rbac"
)

func main() {
	cfg := config.FromEnv()

	logger := slog.New(slogcustom.NewHandler(os.Stdout, slogcustom.ParseLevel(cfg.LogLevel)))
	slog.SetDefault(logger)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Error("db open failed", "err", err)
		os.Exit(1)
	}

	if err := auth.SeedUser(dbh, cfg.SeedTeacherUser, cfg.SeedTeacherPassHash, "teacher"); err != nil {
		logger.Error("seed teacher failed", "err", err)
		os.Exit(1)
	}

	store := exam.NewSQLStore(dbh)
	svc := exam.NewService(store, grading.NewDefaultGrader(),
		exam.WithAuditLog(audit.NewEventRepo(dbh)),
		exam.WithLogger(logger),
	)
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/register", auth.RegisterHandler(dbh))
	r.Post("/auth/login", auth.LoginHandler(dbh, authSvc))

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Teacher authoring
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.CreateExamHandler(store))
		pr.With(rbac.Require("exam:view-own")).
			Get("/exams", api.ListExamsHandler(store))
		pr.With(rbac.Require("exam:delete-own")).
			Delete("/exams/{examID}", api.DeleteExamHandler(store))
		pr.With(rbac.Require("question:create")).
			Post("/exams/{examID}/questions", api.AddQuestionHandler(store))
		pr.With(rbac.Require("exam:view-own")).
			Get("/exams/{examID}/questions", api.GetExamQuestionsHandler(store))
		pr.With(rbac.Require("question:delete")).
			Delete("/exams/{examID}/questions/{questionID}", api.DeleteQuestionHandler(store))
		pr.With(rbac.Require("attempt:view-all")).
			Get("/exams/{examID}/attempts", api.ListExamAttemptsHandler(store))

		// Student flow
		pr.With(rbac.Require("exam:join")).
			Post("/exams/join", api.JoinExamHandler(svc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/answers", api.SubmitAnswerHandler(svc))
		pr.With(rbac.Require("attempt:finalize")).
			Post("/attempts/{attemptID}/finalize", api.FinalizeAttemptHandler(svc))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/attempts/{attemptID}/results", api.GetResultsHandler(svc))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/attempts", api.ListMyAttemptsHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	logger.Info("listening", "addr", cfg.HTTPAddr, "mode", string(cfg.Mode), "db", cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
