package cli

import (
    "fmt"
    "io"
    "log/slog"

    "github.com/spf13/cobra"
)

// Execute runs the swagger2sdk CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:           "swagger2sdk",
        Short:         "Generate Python client libraries from Swagger/OpenAPI specs",
        Long:          "swagger2sdk turns a Swagger/OpenAPI document into a Python client module tree: one function per operation, grouped by URL hierarchy.",
        SilenceErrors: true,
        SilenceUsage:  true,
        PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
            verbose, err := cmd.Flags().GetBool("verbose")
            if err != nil {
                return err
            }
            slog.SetDefault(newLogger(cmd.ErrOrStderr(), verbose))
            return nil
        },
        RunE: func(cmd *cobra.Command, args []string) error {
            return cmd.Help()
        },
    }

    // Convert Cobra flag errors (like unknown flags) into friendly usage errors
    // that also show the command's help text.
    cmd.SetFlagErrorFunc(flagErrorFunc)

    cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
    cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

    g := newGenerateCmd()
    g.SetFlagErrorFunc(flagErrorFunc)
    cmd.AddCommand(g)

    i := newInitCmd()
    i.SetFlagErrorFunc(flagErrorFunc)
    cmd.AddCommand(i)

    return cmd
}

func flagErrorFunc(c *cobra.Command, err error) error {
    return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
    level := slog.LevelInfo
    if verbose {
        level = slog.LevelDebug
    }
    return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
