package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradingjournal/cmd/smoke"
	"tradingjournal/src/database"
	"tradingjournal/src/server"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Trading Journal CMD"
	app.Usage = "The trading journal command line interface"

	app.Commands = []cli.Command{
		serveCMD,
		smokeCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the API server",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the journal API server`,
	}
	smokeCMD = cli.Command{
		Name:        "smoke",
		Usage:       "run a smoke round trip against a running instance",
		Action:      smokeAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Register a throwaway user, open and close a position and verify the summary`,
	}
)

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.InitReadOnlyDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	server.StartServer(server.GetConfig().Port)
	return nil
}

func smokeAction(_ *cli.Context) error {
	logrus.Info("Starting smoke CMD")

	runner := &smoke.Smoke{
		Log: logrus.WithField("cmd", "smoke"),
	}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("Smoke run failed")
		return err
	}

	return nil
}
