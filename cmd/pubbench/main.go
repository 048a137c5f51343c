// Package main provides the CLI entry point for pubbench, a multi-worker
// publish/subscribe throughput benchmarking tool.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/weiihann/pubbench/bench"
	"github.com/weiihann/pubbench/transport"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "pubbench",
		Short: "Publish/subscribe throughput benchmarking tool",
		Long: `Pubbench measures publish and subscribe throughput against a NATS
server by running concurrent publisher and subscriber workers on a shared
subject and aggregating their timing samples into a throughput report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		servers    []string
		secure     bool
		msgs       int
		size       int
		pubs       int
		subs       int
		csvOut     bool
		noProgress bool
		propsPath  string
	)

	cmd := &cobra.Command{
		Use:   "run [subject]",
		Short: "Run a pub/sub throughput benchmark",
		Long: `Run a benchmark session against the configured servers. When
publishers are configured the session first measures raw publish throughput
with a publish-only pass, then runs a combined publish/subscribe pass.

The subject defaults to a freshly generated unique identifier. With
--properties, the plan is read from a Java-style properties file
(bench.nats.* keys) instead of the flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := bench.DefaultPlan()

			if propsPath != "" {
				loaded, err := bench.LoadProperties(propsPath)
				if err != nil {
					return err
				}
				plan = loaded
			} else {
				plan.URLs = servers
				plan.Secure = secure
				plan.Msgs = msgs
				plan.Size = size
				plan.Pubs = pubs
				plan.Subs = subs
				plan.CSV = csvOut
			}

			if len(args) == 1 {
				plan.Subject = args[0]
			}

			if err := plan.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(
				cmd.Context(), os.Interrupt, syscall.SIGTERM,
			)
			defer stop()

			return runSession(ctx, logger, plan, noProgress)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&servers, "servers", "s",
		[]string{transport.DefaultURL},
		"Server URLs to benchmark against")
	flags.BoolVar(&secure, "tls", false,
		"Require TLS on connections")
	flags.IntVarP(&msgs, "msgs", "n", bench.DefaultMsgs,
		"Number of messages to publish")
	flags.IntVar(&size, "size", bench.DefaultSize,
		"Size of the test messages in bytes")
	flags.IntVar(&pubs, "pubs", bench.DefaultPubs,
		"Number of concurrent publishers")
	flags.IntVar(&subs, "subs", bench.DefaultSubs,
		"Number of concurrent subscribers")
	flags.BoolVar(&csvOut, "csv", false,
		"Print results as CSV instead of a text report")
	flags.BoolVar(&noProgress, "no-progress", false,
		"Disable the progress bars")
	flags.StringVar(&propsPath, "properties", "",
		"Load the benchmark plan from a properties file")

	return cmd
}

func runSession(
	ctx context.Context,
	logger *slog.Logger,
	plan bench.Plan,
	noProgress bool,
) error {
	logger.InfoContext(ctx, "benchmark configured",
		slog.Any("servers", plan.URLs),
		slog.Bool("tls", plan.Secure),
		slog.Int("msgs", plan.Msgs),
		slog.Int("size", plan.Size),
		slog.Int("pubs", plan.Pubs),
		slog.Int("subs", plan.Subs),
		slog.String("subject", plan.Subject),
	)

	session := &bench.Session{
		Plan: plan,
		Dialer: &transport.NATSDialer{
			URLs:   plan.URLs,
			Secure: plan.Secure,
			Name:   "pubbench",
		},
		Logger:   logger,
		Out:      os.Stdout,
		Progress: !noProgress && !plan.CSV,
	}

	if err := session.Run(ctx); err != nil {
		return fmt.Errorf("benchmark: %w", err)
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}
