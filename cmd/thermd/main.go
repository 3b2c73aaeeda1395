package main

import (
	"fmt"
	"log"
	"os"

	"github.com/guseggert/thermagent/agent"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

func main() {
	app := &cli.App{
		Name:  "thermd",
		Usage: "serves the browser remote control for the thermocouple logger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen-addr",
				Usage: "The address for the HTTP server to listen on.",
				Value: "0.0.0.0:8081",
			},
			&cli.StringFlag{
				Name:  "install-dir",
				Usage: "The directory holding the logger binary and the UI files.",
				Value: "/home/pi/development/therm",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "The directory log files are read from. Defaults to the install dir.",
			},
			&cli.StringFlag{
				Name:  "binary",
				Usage: "The name of the logger binary inside the install dir.",
				Value: "therm",
			},
			&cli.StringFlag{
				Name:  "sudo",
				Usage: "The program used to run the logger with elevated privileges. Empty to run it directly.",
				Value: "sudo",
			},
			&cli.StringFlag{
				Name:  "csv-file",
				Usage: "The CSV file, relative to the data dir, served at /download.csv and /readings.",
				Value: "temperature.csv",
			},
			&cli.StringFlag{
				Name:  "state-source",
				Usage: "How to find a running logger. One of [ps,proctable].",
				Value: string(agent.StateSourcePS),
			},
			&cli.StringSliceFlag{
				Name:  "allowed-origin",
				Usage: "A host pattern (e.g. \"*.local\") of other sites whose pages may open sessions. May be repeated.",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "The minimum log level. One of [debug,info,warn,error].",
				Value: "info",
			},
		},
		Action: func(ctx *cli.Context) error {
			level, err := zapcore.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return fmt.Errorf("parsing log level: %w", err)
			}

			opts := []agent.Option{
				agent.WithLogLevel(level),
				agent.WithListenAddr(ctx.String("listen-addr")),
				agent.WithInstallDir(ctx.String("install-dir")),
				agent.WithBinaryName(ctx.String("binary")),
				agent.WithSudo(ctx.String("sudo")),
				agent.WithCSVFile(ctx.String("csv-file")),
				agent.WithStateSource(agent.StateSource(ctx.String("state-source"))),
				agent.WithOriginPatterns(ctx.StringSlice("allowed-origin")...),
			}
			if dataDir := ctx.String("data-dir"); dataDir != "" {
				opts = append(opts, agent.WithDataDir(dataDir))
			}

			a, err := agent.New(opts...)
			if err != nil {
				return fmt.Errorf("building agent: %w", err)
			}
			return a.Run()
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
