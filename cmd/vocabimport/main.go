package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit code. A declined
// confirmation and an interrupt both count as success.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{in: stdin, out: stdout}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.shutdown()

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errCancelled):
		fmt.Fprintln(stdout, "Import cancelled.")
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stdout, "Import interrupted.")
		return 0
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vocabimport",
		Short: "Import vocabulary word lists into the dictionary store",
		Long: `vocabimport loads CSV/TSV word lists into the dictionary tables in
fixed-size batches. Credentials come from the environment or a .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd.Flag("env-file").Changed)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.envFile, "env-file", ".env", "path of the .env file to load")
	flags.BoolVarP(&a.flags.yes, "yes", "y", false, "import without asking for confirmation")
	flags.IntVar(&a.flags.batchSize, "batch-size", 0, "records per batch (default: the profile's size)")
	flags.IntVar(&a.flags.workers, "workers", 0, "batches loaded concurrently (default: IMPORT_WORKERS)")

	root.AddCommand(newDictionaryCmd(a), newTranslationCmd(a), newSourcesCmd(a))
	return root
}
