// Command stylize applies one of the fixed filter styles to an image and
// writes the result as PNG.
//
//	stylize --input photo.jpg --output out/photo.png --style van_gogh
package main

import (
	"fmt"
	"io"
	"os"

	"nftgen/core"
	"nftgen/imaging"
	"nftgen/logging"
	"nftgen/styles"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	input   string
	output  string
	style   string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "stylize",
		Short: "Apply a filter style to an image",
		Long: `Apply a deterministic filter style to an image and save it as PNG.

Styles: ` + fmt.Sprint(styles.Names()) + `
Unknown style names use the default style.`,
		Version:       core.VersionInfo(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewCLILogger(cmd.ErrOrStderr(), opts.verbose, os.Getenv("LOG_FILE"))
			if err != nil {
				return err
			}
			defer logger.Sync()
			return run(cmd.OutOrStdout(), opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "input image path")
	flags.StringVarP(&opts.output, "output", "o", "", "output PNG path")
	flags.StringVarP(&opts.style, "style", "s", "", "style to apply")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	for _, name := range []string{"input", "output", "style"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func run(stdout io.Writer, opts *options, logger *logging.Logger) error {
	if err := core.RequireFile(opts.input); err != nil {
		return err
	}

	style, known := styles.Parse(opts.style)
	if !known {
		logger.Warn("unknown style, using default", zap.String("style", opts.style))
	}
	logger.Debug("applying style",
		zap.String("input", opts.input),
		zap.String("style", style.String()),
		zap.Strings("steps", styles.Steps(style)))

	img, err := imaging.DecodeFile(opts.input)
	if err != nil {
		return fmt.Errorf("processing image: %w", err)
	}
	out := styles.Apply(img, style)

	if err := core.WriteFileAtomic(opts.output, func(w io.Writer) error {
		return imaging.EncodePNG(w, out)
	}); err != nil {
		return fmt.Errorf("processing image: %w", err)
	}

	fmt.Fprintf(stdout, "Processed image saved to: %s\n", opts.output)
	return nil
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(core.ExitCodeFor(err))
	}
}
