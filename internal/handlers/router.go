package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mw "sentisense/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Sentiment *SentimentHandler
	Comments  *CommentsHandler
	Email     *EmailHandler
	Health    *HealthHandler
	AuthMW    *mw.AuthMiddleware

	AllowedOrigins []string
	// Limiter enables rate limiting on /auth and /email when non-nil.
	Limiter   mw.Counter
	RateLimit mw.RateLimitConfig
	Logger    *zap.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.ZapRecoverer(d.Logger))
	r.Use(mw.ZapRequestLogger(d.Logger))
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", d.Health.Root)
	r.Get("/health", d.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(ar chi.Router) {
		if d.Limiter != nil {
			ar.Use(mw.RateLimit(d.Limiter, "auth", d.RateLimit, d.Logger))
		}
		ar.Post("/register", d.Auth.Register)
		ar.Post("/token", d.Auth.Token)
		ar.Post("/check-user", d.Auth.CheckUser)
		ar.Post("/google-signup", d.Auth.GoogleSignup)
		ar.Post("/google-login", d.Auth.GoogleLogin)
		ar.Post("/forgot-password", d.Auth.ForgotPassword)
		ar.Post("/reset-password", d.Auth.ResetPassword)
	})

	r.Route("/sentiment", func(sr chi.Router) {
		sr.With(d.AuthMW.RequireAuth).Post("/analyze-sentiment", d.Sentiment.Analyze)
		sr.With(d.AuthMW.OptionalAuth).Get("/analysis-history", d.Sentiment.History)
	})

	r.Group(func(cr chi.Router) {
		cr.Use(d.AuthMW.OptionalAuth)
		cr.Post("/youtube/fetch-comments", d.Comments.YouTube)
		cr.Post("/reddit/fetch-comments", d.Comments.Reddit)
	})

	r.Route("/email", func(er chi.Router) {
		if d.Limiter != nil {
			er.Use(mw.RateLimit(d.Limiter, "email", d.RateLimit, d.Logger))
		}
		er.Post("/contact", d.Email.Contact)
	})

	return r
}
