package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/dialog"
	"github.com/mansourkira/evoluflow/core/resource"
	"github.com/mansourkira/evoluflow/core/session"
	logsvc "github.com/mansourkira/evoluflow/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags), conf)
	defer logger.Close()

	validate, translator := core.NewValidator()
	cli := &commandLine{
		conf:   conf,
		store:  session.NewFileStore(conf.Console.SessionFile),
		tr:     resource.NewTransport(conf.Console.APIBaseURL, &http.Client{Timeout: conf.Backend.Timeout}, nil),
		schema: dialog.Schema{Validate: validate, Translator: translator},
		out:    os.Stdout,
		now:    time.Now,
	}
	cli.openRepo = cli.openPostgresDirectory

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error())
		}
		logger.Close()
		os.Exit(1)
	}
}
