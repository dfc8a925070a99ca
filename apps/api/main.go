package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	ut "github.com/go-playground/universal-translator"

	echoapi "github.com/mansourkira/evoluflow/apps/api/echo"
	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/resource"
	"github.com/mansourkira/evoluflow/core/user"
	emailsvc "github.com/mansourkira/evoluflow/services/email"
	logsvc "github.com/mansourkira/evoluflow/services/logger"
	metricsvc "github.com/mansourkira/evoluflow/services/metrics"
	"github.com/mansourkira/evoluflow/storage/database"
	inmemdb "github.com/mansourkira/evoluflow/storage/database/inmem"
	sqlxrepos "github.com/mansourkira/evoluflow/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// every backend call shares the configured timeout
	backend := resource.NewTransport(conf.Backend.BaseURL, &http.Client{Timeout: conf.Backend.Timeout}, nil)

	var (
		auth       user.Authenticator
		translator ut.Translator
	)
	switch conf.Auth.Mode {
	case core.AuthModeBackend:
		auth = user.NewRemoteService(backend)
		translator = core.NewTranslator()
	default:
		repo, closeRepo, err := setUpUserRepository(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up user storage: %v", err), err)
		}
		defer closeRepo()

		usrSvc := user.NewService(repo, mailSvc, conf, logger)
		auth = usrSvc
		translator = usrSvc.Translator()
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, auth mode %q", conf.Build, conf.Auth.Mode))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("backend").Set(conf.Backend.BaseURL)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Auth:       auth,
			Backend:    backend,
			Metrics:    metricsvc.NewMetrics(),
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpUserRepository returns the user store of the mock auth mode, seeded with the default users.
func setUpUserRepository(conf *core.Config) (user.Repository, func(), error) {
	ctx := context.Background()

	if conf.Auth.Storage != "postgres" {
		repo := inmemdb.NewUserRepository(inmemdb.NewDB())
		return repo, func() {}, user.Seed(ctx, repo, user.DefaultUsers...)
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Printf("closing database: %v", err)
		}
	}
	if err = sqlxrepos.CreateSchema(ctx, db); err != nil {
		closeDB()
		return nil, nil, err
	}
	repo := sqlxrepos.NewUserRepository(db)
	if err = user.Seed(ctx, repo, user.DefaultUsers...); err != nil {
		closeDB()
		return nil, nil, err
	}
	return repo, closeDB, nil
}
