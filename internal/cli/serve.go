package cli

import (
	"context"
	"os/signal"
	"syscall"

	"planhub-be/internal/bootstrap"
	"planhub-be/internal/server"
	"planhub-be/internal/tracer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API with its background workers",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(parent context.Context, opts *RootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg, db, err := openDatabase(opts)
	if err != nil {
		return err
	}

	container := bootstrap.NewContainer(ctx, db, cfg)
	defer container.Close()

	srv := server.New(cfg, container)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})
	g.Go(func() error {
		return container.NotificationService.Start(gctx)
	})
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		color.Yellow("Shutting down...")
		return srv.Shutdown()
	})

	return g.Wait()
}
