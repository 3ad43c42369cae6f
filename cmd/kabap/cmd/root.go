package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set by build flags).
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit codes (spec §6): 0 success, 1 script-runtime error, 2
// help/version/misuse, 3 file-missing, 4 file-other-error, 13
// file-permission-denied.
const (
	ExitOK             = 0
	ExitRuntime        = 1
	ExitUsage          = 2
	ExitFileMissing    = 3
	ExitFileOther      = 4
	ExitFilePermission = 13
)

// exitError carries the process exit code a failing command wants, so
// Execute can report it without os.Exit-ing from inside RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

var rootCmd = &cobra.Command{
	Use:   "kabap",
	Short: "Kabap sandboxed scripting engine",
	Long: `kabap runs scripts written in the Kabap language: a small,
sandboxed, string-typed scripting language built around three phases —
tokenise, optimise, execute — with no functions, no arrays, and a
single string-valued variable store shared with the embedding host.`,
	// Run makes the root command runnable, so its persistent pre-run
	// (which handles --hello and --v) is reached when no subcommand is
	// given; otherwise it shows help.
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("hello", false, "print a greeting and exit")
	rootCmd.PersistentFlags().Bool("v", false, "print version information and exit")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if hello, _ := cmd.Flags().GetBool("hello"); hello {
			fmt.Fprintln(cmd.OutOrStdout(), "Hello from Kabap!")
			os.Exit(ExitOK)
		}
		if v, _ := cmd.Flags().GetBool("v"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "kabap version %s\nCommit: %s\nBuilt:  %s\n", Version, GitCommit, BuildDate)
			os.Exit(ExitUsage)
		}
		return nil
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		if help, _ := cmd.Flags().GetBool("help"); help {
			return ExitUsage
		}
		return ExitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		fmt.Fprintln(os.Stderr, ee.Error())
		return ee.code
	}

	// cobra's own errors (unknown flag, unknown command, wrong arg
	// count) are all usage mistakes.
	fmt.Fprintln(os.Stderr, err.Error())
	return ExitUsage
}
