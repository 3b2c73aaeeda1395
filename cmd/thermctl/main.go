package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/guseggert/thermagent/agent"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:      "thermctl",
		Usage:     "sends a command to a running thermd and prints the events it produces",
		ArgsUsage: "<gettemp|logstart <interval>|logstop|readfile <name>|checkstate>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "The host:port of the agent.",
				Value: "127.0.0.1:8081",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "How long to wait for events after sending the command.",
				Value: 5 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "How often to check whether the agent is up before connecting.",
				Value: 100 * time.Millisecond,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log protocol traffic.",
			},
		},
		Action: func(cctx *cli.Context) error {
			command := strings.Join(cctx.Args().Slice(), " ")
			if command == "" {
				return errors.New("no command given")
			}

			logger := zap.NewNop()
			if cctx.Bool("verbose") {
				l, err := zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("building logger: %w", err)
				}
				logger = l
			}

			ctx, cancel := context.WithTimeout(cctx.Context, 10*time.Second+cctx.Duration("wait"))
			defer cancel()

			client := agent.NewClient(logger.Sugar(), cctx.String("addr"), agent.WithClientWaitInterval(cctx.Duration("poll-interval")))
			err := client.WaitForServer(ctx)
			if err != nil {
				return fmt.Errorf("waiting for agent: %w", err)
			}

			conn, err := client.Connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			msg, err := conn.Next(ctx)
			if err != nil {
				return fmt.Errorf("reading status: %w", err)
			}
			fmt.Printf("%s %s\n", msg.Event, msg.Data)

			err = conn.Send(ctx, command)
			if err != nil {
				return fmt.Errorf("sending command: %w", err)
			}

			// commands that produce no event just run out the wait
			waitCtx, waitCancel := context.WithTimeout(ctx, cctx.Duration("wait"))
			defer waitCancel()
			for {
				msg, err := conn.Next(waitCtx)
				if err != nil {
					if waitCtx.Err() != nil {
						return nil
					}
					return fmt.Errorf("reading event: %w", err)
				}
				fmt.Printf("%s %s\n", msg.Event, msg.Data)
			}
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
