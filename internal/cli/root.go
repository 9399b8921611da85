package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/linguapath/learnmap/internal/api"
	"github.com/linguapath/learnmap/internal/services"
)

// App holds what the commands need. Scheduler-only fields may be left zero
// when the caller never runs that command.
type App struct {
	Handler        *api.Handler
	Hearts         services.HeartsService
	RefillInterval time.Duration
	Out            io.Writer
}

// NewRootCmd creates the top-level "learnmap" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	if app.Out == nil {
		app.Out = os.Stdout
	}

	var user string
	root := &cobra.Command{
		Use:           "learnmap",
		Short:         "Course progression engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&user, "user", os.Getenv("LEARNMAP_USER"), "Authenticated user id")

	root.AddCommand(
		newStartCmd(app, &user),
		newShowCmd(app, &user),
		newExerciseCmd(app, &user),
		newUpdateCmd(app, &user),
		newFastTrackCmd(app, &user),
		newReviewCmd(app, &user),
		newRefillHeartsCmd(app),
		newSchedulerCmd(app),
	)

	return root
}

// HardFailureError is returned by a command whose response carried an error
// code, so the process exits non-zero after printing it.
type HardFailureError struct {
	Response api.Response
}

func (e *HardFailureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Response.Code, e.Response.Message)
}

func writeResponse(app *App, resp api.Response) error {
	enc := json.NewEncoder(app.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if resp.Code != "" {
		return &HardFailureError{Response: resp}
	}
	return nil
}
