package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/scheduler"
)

func newRefillHeartsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refill-hearts",
		Short: "Run one hearts refill pass over every document below the cap",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Hearts == nil {
				return fmt.Errorf("hearts refill is not configured")
			}
			n, err := app.Hearts.RefillHearts(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "refilled hearts on %d documents\n", n)
			return nil
		},
	}
}

func newSchedulerCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Refill hearts periodically until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Hearts == nil {
				return fmt.Errorf("hearts refill is not configured")
			}
			log := logger.Default().WithPrefix("cli")

			ctx, cancel := context.WithCancel(commandContext(cmd))
			defer cancel()

			s := scheduler.New(app.Hearts, app.RefillInterval)
			if err := s.Start(ctx); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stop)

			select {
			case sig := <-stop:
				log.Info("received signal %v, stopping scheduler", sig)
			case <-ctx.Done():
			}

			cancel()
			s.Stop()
			return nil
		},
	}
}
