package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"sentisense/internal/auth"
	"sentisense/internal/config"
	"sentisense/internal/db"
	"sentisense/internal/handlers"
	"sentisense/internal/ledger"
	mw "sentisense/internal/middleware"
	"sentisense/internal/notify"
	"sentisense/internal/sentiment"
	"sentisense/internal/sources/reddit"
	"sentisense/internal/sources/youtube"
	"sentisense/internal/store"
	"sentisense/internal/store/memstore"
	"sentisense/internal/store/mongostore"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// stores holds the persistence backends selected by configuration.
type stores struct {
	users  auth.UserStore
	ledger ledger.Store
	quotas notify.QuotaStore
	close  func(context.Context) error
}

func openStores(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*stores, error) {
	switch cfg.Driver {
	case "postgres":
		conn, err := db.OpenPostgres(ctx, cfg.DatabaseURL, cfg.MaxOpenConns, cfg.ConnMaxLifetime)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed migrations: %w", err)
		}
		logger.Info("using postgres store")
		return &stores{
			users:  store.NewUserStore(conn),
			ledger: store.NewLedgerStore(conn),
			quotas: store.NewQuotaStore(conn),
			close:  func(context.Context) error { return conn.Close() },
		}, nil

	case "mongo":
		client, database, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Info("using mongo store", zap.String("database", cfg.MongoDatabase))
		return &stores{
			users:  mongostore.NewUsers(database),
			ledger: mongostore.NewLedger(database),
			quotas: mongostore.NewQuotas(database),
			close:  closeMongo(client),
		}, nil

	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		return &stores{
			users:  memstore.NewUsers(),
			ledger: memstore.NewLedger(),
			quotas: memstore.NewQuotas(),
			close:  func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func closeMongo(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error { return client.Disconnect(ctx) }
}

func newTransport(cfg config.MailConfig, logger *zap.Logger) (notify.Transport, error) {
	switch cfg.Transport {
	case "resend":
		return notify.NewResendTransport(cfg.ResendAPIKey, cfg.ResendBaseURL, cfg.From)
	case "smtp":
		return notify.NewSMTPTransport(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From), nil
	}
	logger.Warn("no mail transport configured; emails are only logged")
	return notify.NewLogTransport(logger), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	var limiter mw.Counter
	if cfg.Redis.URL != "" {
		rdb, err := db.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = rdb
	}

	// The dispatcher outlives request handling so queued mail can drain
	// after the HTTP server has stopped.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	transport, err := newTransport(cfg.Mail, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(transport, notify.DispatcherOptions{
		QueueSize:   cfg.Mail.QueueSize,
		Workers:     cfg.Mail.Workers,
		MaxAttempts: cfg.Mail.MaxAttempts,
		BaseDelay:   cfg.Mail.RetryBaseDelay,
	}, logger)
	dispatchDone := make(chan error, 1)
	go func() { dispatchDone <- dispatcher.Run(dispatchCtx) }()

	composer := notify.NewComposer(cfg.Mail.SupportInbox)
	authSvc := auth.NewService(auth.ServiceDeps{
		Users:    st.users,
		Tokens:   auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.ResetTokenTTL),
		Google:   auth.NewGoogleUserInfo(),
		Composer: composer,
		Outbox:   dispatcher,
		BaseURL:  cfg.Auth.BaseURL,
		Logger:   logger,
	})
	ledgerSvc := ledger.NewService(st.ledger, logger)
	contact := notify.NewContactService(notify.NewQuota(st.quotas, cfg.Mail.MaxEmailsPerDay), composer, dispatcher, logger)

	classifier := sentiment.NewHFClient(sentiment.HFOptions{
		BaseURL:  cfg.Classifier.BaseURL,
		Model:    cfg.Classifier.Model,
		Token:    cfg.Classifier.HFToken,
		MaxChars: cfg.Classifier.MaxChars,
		Timeout:  cfg.Classifier.Timeout,
	})
	var ytOpts []option.ClientOption
	if cfg.YouTube.APIKey == "" {
		logger.Warn("YOUTUBE_API_KEY not set; youtube requests will be rejected upstream")
		ytOpts = append(ytOpts, option.WithoutAuthentication())
	}
	videos, err := youtube.NewClient(ctx, cfg.YouTube.APIKey, cfg.YouTube.MaxComments, ytOpts...)
	if err != nil {
		return err
	}
	threads := reddit.NewClient(ctx, reddit.Config{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
		TokenURL:     cfg.Reddit.TokenURL,
		APIBaseURL:   cfg.Reddit.APIBaseURL,
		MaxComments:  cfg.Reddit.MaxComments,
	})

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:      handlers.NewAuthHandler(authSvc, logger),
		Sentiment: handlers.NewSentimentHandler(classifier, ledgerSvc, logger),
		Comments: handlers.NewCommentsHandler(handlers.CommentsDeps{
			Videos:      videos,
			Threads:     threads,
			Classifier:  classifier,
			Ledger:      ledgerSvc,
			Concurrency: cfg.Classifier.Concurrency,
			Logger:      logger,
		}),
		Email:          handlers.NewEmailHandler(contact, logger),
		Health:         handlers.NewHealthHandler(cfg.Server.Version),
		AuthMW:         mw.NewAuthMiddleware(authSvc, logger),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		RateLimit: mw.RateLimitConfig{
			RequestsPerMinute: cfg.Redis.RequestsPerMinute,
			BurstSize:         cfg.Redis.BurstSize,
		},
		Logger: logger,
	})

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("store", cfg.Store.Driver), zap.String("mail", cfg.Mail.Transport))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-serveErr:
		if err != nil {
			stopDispatch()
			<-dispatchDone
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", zap.Error(err))
	}

	stopDispatch()
	if err := <-dispatchDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("mail dispatcher stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
