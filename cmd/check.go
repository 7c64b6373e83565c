package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/km-arc/go-dicontainer/framework/container"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the binding graph and print it in construction order",
	Long: `Register every provider, freeze the container and validate the graph
without serving. Problems are listed one per line and the command fails.

Examples:
  # Check the default bindings
  dicontainer check

  # Check a manifest before deploying it
  dicontainer check --manifest deploy/bindings.yaml`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	cfg.Container.Validate = false

	application, err := newApplication(cfg)
	if err != nil {
		return err
	}
	if err := application.Boot(); err != nil {
		return err
	}
	defer func() { _ = application.Shutdown(cmd.Context()) }()

	out := cmd.OutOrStdout()
	if order, err := application.Graph(); err == nil {
		printOrder(out, order)
	}

	errs := multierr.Errors(application.Validate())
	if len(errs) == 0 {
		_, _ = fmt.Fprintln(out, "ok")
		return nil
	}
	for _, err := range errs {
		_, _ = fmt.Fprintln(out, "error:", err)
	}
	return fmt.Errorf("%d problem(s) in the binding graph", len(errs))
}

func printOrder(w io.Writer, order []*container.Binding) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tSCOPE\tCONTRACT")
	for i, b := range order {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, b.Scope, b.Contract)
	}
	_ = tw.Flush()
}
