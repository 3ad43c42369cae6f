package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kabaplang/kabap-go/internal/cliconfig"
	"github.com/kabaplang/kabap-go/pkg/kabap"
)

var (
	runScale    int
	runWatchdog int
	runConfig   string
	runOptimise int
	runTokens   bool
)

var runCmd = &cobra.Command{
	Use:   "run <sourcefile>",
	Short: "Run a Kabap script or .kat token file",
	Long: `run loads a file and executes it. Files named *.kat, or any file
given alongside --tokens, are loaded as tokenised programs; everything
else is tokenised and optimised as source text.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runScale, "scale", kabap.DefaultScale, "decimal scale for arithmetic results")
	runCmd.Flags().IntVar(&runWatchdog, "watchdog", kabap.DefaultWatchdogLimit, "watchdog tick limit (0 disables it)")
	runCmd.Flags().StringVar(&runConfig, "config", "", "YAML file of default scale/watchdog (its extensions list is not applied)")
	runCmd.Flags().IntVar(&runOptimise, "optimise", -1, "re-optimise the loaded program at this level before running")
	runCmd.Flags().BoolVar(&runTokens, "tokens", false, "treat the file as a persisted .kat token stream")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return withExit(fileErrorExitCode(err), fmt.Errorf("reading %s: %w", path, err))
	}

	var cfg cliconfig.Config
	if runConfig != "" {
		cfg, err = cliconfig.Load(runConfig)
		if err != nil {
			return withExit(fileErrorExitCode(err), fmt.Errorf("reading config %s: %w", runConfig, err))
		}
	}

	engine := kabap.New()

	var ok bool
	if runTokens || isTokenFile(path) {
		ok = engine.TokensLoad(string(data))
	} else {
		ok = engine.Script(string(data))
	}
	if !ok {
		return withExit(ExitRuntime, errors.New(engine.Stderr()))
	}

	if runOptimise >= 0 {
		text, saveOK := engine.TokensSave(runOptimise)
		if !saveOK {
			return withExit(ExitRuntime, errors.New(engine.Stderr()))
		}
		if !engine.TokensLoad(text) {
			return withExit(ExitRuntime, errors.New(engine.Stderr()))
		}
	}

	// Script/TokensLoad re-default (or, for .kat, adopt the header's)
	// scale and watchdog, so config and flag overrides are applied
	// last, in increasing precedence: config file, then explicit flags.
	if cfg.Scale != 0 {
		engine.ScaleSet(cfg.Scale)
	}
	if cfg.Watchdog != 0 {
		engine.WatchdogSet(cfg.Watchdog)
	}
	if cmd.Flags().Changed("scale") {
		engine.ScaleSet(runScale)
	}
	if cmd.Flags().Changed("watchdog") {
		engine.WatchdogSet(runWatchdog)
	}

	if !engine.Run() {
		fmt.Fprint(cmd.OutOrStdout(), engine.Stdout())
		return withExit(ExitRuntime, errors.New(engine.Stderr()))
	}

	fmt.Fprint(cmd.OutOrStdout(), engine.Stdout())
	return nil
}

func isTokenFile(path string) bool {
	return len(path) > 4 && path[len(path)-4:] == ".kat"
}

func fileErrorExitCode(err error) int {
	switch {
	case os.IsNotExist(err):
		return ExitFileMissing
	case os.IsPermission(err):
		return ExitFilePermission
	default:
		return ExitFileOther
	}
}
