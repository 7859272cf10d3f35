// Command nftgen runs the image generation service: uploads are stylized
// by a diffusion backend, with the filter styles as fallback.
package main

import (
	"fmt"
	"io"
	"net"
	"os"

	"nftgen/core"
	"nftgen/core/validation"
	"nftgen/logging"
	"nftgen/shutdown"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "nftgen",
	Short: "Image stylization and img2img generation service",
	Long: `nftgen serves the generation API on NFTGEN_HOST:NFTGEN_PORT.

Configuration is read from the environment and from a .env file in the
working directory. Run "nftgen service install" to register it as an OS
service.`,
	Version:       core.VersionInfo(),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.Flags().Bool("skip-checks", false, "start without running the startup checks")

	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(hashKeyCmd)
	rootCmd.AddCommand(historyCmd)
}

// newServiceLogger builds the service logger from cfg: JSON console output
// unless DEV_MODE is set, plus the rotating LOG_FILE when configured.
func newServiceLogger(cfg *core.Config, verbose bool) (*logging.Logger, error) {
	level := logging.ParseLogLevelString(cfg.LogLevel, zapcore.InfoLevel)
	if verbose {
		level = zapcore.DebugLevel
	}
	return logging.NewLogger(logging.Config{
		Level:       level,
		Development: cfg.DevMode,
		FilePath:    cfg.LogFile,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	skipChecks, _ := cmd.Flags().GetBool("skip-checks")
	return serve(verbose, skipChecks, nil)
}

// serve runs the service in the foreground until SIGINT or SIGTERM. The
// OS service wrapper calls it with the manager it stops.
func serve(verbose, skipChecks bool, mgr *shutdown.Manager) error {
	cfg, err := core.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := newServiceLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	if mgr == nil {
		mgr = shutdown.NewManager(logger)
		mgr.Start()
	}

	a, err := newApp(cfg, logger, mgr)
	if err != nil {
		mgr.Shutdown()
		return err
	}

	if !skipChecks {
		res := validation.NewSuite("nftgen startup checks", validation.WithOutput(os.Stderr)).
			Add(a.startupChecks()...).
			Run(mgr.Context())
		if !res.OK() {
			logger.Error("startup checks failed", zap.String("summary", res.Summary()))
			mgr.Shutdown()
			return res.Err()
		}
	}

	return a.run(nil)
}

// listenAndServe is serve on an existing listener, used by tests.
func listenAndServe(cfg *core.Config, logger *logging.Logger, mgr *shutdown.Manager, ln net.Listener) error {
	a, err := newApp(cfg, logger, mgr)
	if err != nil {
		mgr.Shutdown()
		return err
	}
	return a.run(ln)
}

// printError writes err to stderr. Configuration errors get their fix on a
// separate line.
func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprint(w, "Error: ")
	cfgErr, ok := core.IsConfigError(err)
	if !ok || cfgErr.Action == "" {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintf(w, "%s [%s]\n", cfgErr.Message, cfgErr.Code)
	color.New(color.FgYellow).Fprintf(w, "  %s\n", cfgErr.Action)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}

	if handled, err := runAsService(); handled {
		if err != nil {
			printError(os.Stderr, err)
			os.Exit(core.ExitCodeError)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(core.ExitCodeFor(err))
	}
}
