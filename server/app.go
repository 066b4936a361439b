package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"plantobill/config"
	"plantobill/internal/account"
	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/dashboard"
	"plantobill/internal/db"
	"plantobill/internal/expense"
	"plantobill/internal/health"
	"plantobill/internal/invoice"
	"plantobill/internal/logs"
	"plantobill/internal/mailer"
	"plantobill/internal/middleware"
	"plantobill/internal/models"
	"plantobill/internal/project"
	"plantobill/internal/task"
	"plantobill/internal/timelog"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	queue      *mailer.Queue
	Router     *mux.Router
	Handler    http.Handler
	httpServer *http.Server
}

func (a *App) Initialize(cfg *config.Config) error {
	a.cfg = cfg

	/* 1) Логи */
	if err := logs.Init(logs.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		return err
	}

	/* 2) DB */
	d, err := db.Open(db.Options{
		URL:             cfg.Database.URL,
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return err
	}
	a.db = d
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(a.db); err != nil {
			return fmt.Errorf("db migrate: %w", err)
		}
	}

	/* 3) Почта */
	var sender mailer.Sender = mailer.LogSender{}
	if cfg.Mail.Enabled {
		sender = &mailer.SMTPSender{
			Host: cfg.Mail.SMTPHost,
			Port: cfg.Mail.SMTPPort,
			User: cfg.Mail.SMTPUser,
			Pass: cfg.Mail.SMTPPass,
			From: cfg.Mail.From,
		}
	}
	a.queue = mailer.NewQueue(sender, cfg.Mail.QueueSize)

	/* 4) Сервисы */
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	accounts := account.NewService(a.db, tokens, a.queue, account.Options{
		OTPTTL:     cfg.Auth.OTPTTL,
		BcryptCost: cfg.Auth.BcryptCost,
		AppName:    cfg.Mail.AppName,
	})
	if cfg.Bootstrap.AdminEmail != "" {
		if _, err := accounts.EnsureAdmin(context.Background(),
			cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.Company); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	/* 5) Router + middleware */
	a.Router = mux.NewRouter()
	a.Router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		models.WriteError(w, r, apperr.NotFound("Route not found"))
	})
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)
	health.RegisterRoutes(a.Router, a.db)

	api := a.Router.PathPrefix("/api").Subrouter()
	protected := api.NewRoute().Subrouter()
	protected.Use(auth.Authenticate(tokens))

	account.RegisterRoutes(api, protected, account.NewHandler(accounts))
	project.RegisterRoutes(protected, project.NewHandler(project.NewService(a.db)))
	task.RegisterRoutes(protected, task.NewHandler(task.NewService(a.db)))
	timelog.RegisterRoutes(protected, timelog.NewHandler(timelog.NewService(a.db)))
	expense.RegisterRoutes(protected, expense.NewHandler(expense.NewService(a.db)))
	invoice.RegisterRoutes(protected, invoice.NewHandler(invoice.NewService(a.db)))
	dashboard.RegisterRoutes(protected, dashboard.NewHandler(dashboard.NewService(a.db)))

	// CORS снаружи роутера: preflight OPTIONS не совпадает ни с одним маршрутом.
	a.Handler = middleware.CORS(cfg.Server.CORSOrigin)(a.Router)

	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := rt.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			return nil
		}
		logs.Logger.Debugf("route: %-6v %s", methods, path)
		return nil
	})
	return nil
}

func (a *App) Run() error {
	if a.Handler == nil || a.cfg == nil {
		return errors.New("server not initialized")
	}
	defer a.Close()

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logs.Logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}

// Close дожидается очереди писем и закрывает пул БД.
func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
		a.queue = nil
	}
	if err := db.Close(a.db); err != nil {
		logs.Logger.Errorf("db close: %v", err)
	}
	a.db = nil
}
