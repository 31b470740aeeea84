package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/neko-jpg/luminara"
	"github.com/neko-jpg/luminara/internal/demo"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the batch plan of every stage",
		Long: `Print how the demo simulation's tasks are grouped into batches.

Tasks in the same batch run concurrently; batches run in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			app := luminara.NewApp(cfg)
			if err := app.AddPlugin(demo.New(0)); err != nil {
				return WrapExitError(ExitCommandError, "failed to build app", err)
			}
			return writePlans(cmd.OutOrStdout(), app.Schedule())
		},
	}
}

func writePlans(out io.Writer, s *luminara.Schedule) error {
	for _, stage := range luminara.Stages() {
		if _, err := fmt.Fprint(out, s.Plan(stage)); err != nil {
			return err
		}
	}
	return nil
}
