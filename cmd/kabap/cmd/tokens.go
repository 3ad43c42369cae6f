package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kabaplang/kabap-go/pkg/kabap"
)

var (
	tokensLevel  int
	tokensOutput string
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <sourcefile>",
	Short: "Tokenise a script and emit its .kat form",
	Long: `tokens parses a Kabap source file, optimises it at the requested
level, and writes the resulting .kat token stream to stdout or to the
file named by --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokens,
}

func init() {
	tokensCmd.Flags().IntVar(&tokensLevel, "level", 0, "optimisation level (0-3)")
	tokensCmd.Flags().StringVarP(&tokensOutput, "output", "o", "", "write .kat to this file instead of stdout")
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return withExit(fileErrorExitCode(err), fmt.Errorf("reading %s: %w", path, err))
	}

	engine := kabap.New()
	if !engine.Script(string(data)) {
		return withExit(ExitRuntime, errors.New(engine.Stderr()))
	}

	out, ok := engine.TokensSave(tokensLevel)
	if !ok {
		return withExit(ExitRuntime, errors.New(engine.Stderr()))
	}

	if tokensOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}
	if err := os.WriteFile(tokensOutput, []byte(out), 0o644); err != nil {
		return withExit(fileErrorExitCode(err), fmt.Errorf("writing %s: %w", tokensOutput, err))
	}
	return nil
}
