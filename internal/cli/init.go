package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long: "Create the configuration directory with a default config.yaml, then\n" +
			"create the parent, child_a and child_b tables in the configured backend.\n" +
			"Running init again leaves existing configuration and data alone.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, _ []string) error {
	written, err := writeConfigIfMissing(a.configDir, a.cfg.DataDir)
	if err != nil {
		return sysError(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	_, closer, err := a.open(ctx, true)
	if err != nil {
		return err
	}
	if err := closer.Close(); err != nil {
		return sysError(fmt.Errorf("finalize storage: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "repokit initialized")
	fmt.Fprintln(out, "  config: ", a.configDir)
	if written {
		fmt.Fprintln(out, "  (wrote default config.yaml)")
	}
	fmt.Fprintln(out, "  backend:", a.cfg.Backend)
	fmt.Fprintln(out, "  data:   ", a.cfg.DataDir)
	return nil
}
