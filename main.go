package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"socialfeed/pkg/config"
	"socialfeed/pkg/frontend"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "socialfeed",
		Short:        "Community board and patient social feed",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	root.AddCommand(
		newServeCmd(),
		newLoginCmd(),
		newPostCmd(),
		newRetweetCmd(),
		newLikeCmd(),
		newCommentCmd(),
		newFeedCmd(),
	)
	return root
}

// withApp loads the configuration, builds the services and closes them after fn.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("error starting socialfeed", "msg", err.Error())
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("error closing resources", "msg", err.Error())
		}
	}()
	return fn(a)
}

func newServeCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front door and the feed event workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				ctx := cmd.Context()
				if address == "" {
					address = a.cfg.ListenAddress
				}
				lis, err := net.Listen("tcp", address)
				if err != nil {
					return err
				}
				if a.worker != nil && a.cfg.NumWorkers > 0 {
					go a.worker.RunWorkers(ctx, a.cfg.NumWorkers)
				}
				return frontend.NewServer(a.feed, a.board, a.logger).Serve(ctx, lis)
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address (overrides listen_address)")
	return cmd
}
