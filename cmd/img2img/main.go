// Command img2img runs one image-to-image diffusion generation and saves the
// first result as PNG.
//
//	img2img --input photo.jpg --output out.png --prompt "oil painting" --strength 0.6
//
// The backend is chosen by --provider or NFTGEN_PROVIDER: the local
// stable-diffusion runtime, an AUTOMATIC1111-compatible server, or OpenAI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"nftgen/core"
	"nftgen/core/validation"
	"nftgen/imagegen"
	"nftgen/logging"
	"nftgen/sdruntime"
	"nftgen/styles"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	input    string
	output   string
	prompt   string
	style    string
	provider string

	strength      float64
	guidanceScale float64
	steps         int
	seed          int64

	download bool
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "img2img",
		Short: "Generate an image from an input image and a prompt",
		Long: `Run a Stable Diffusion image-to-image generation.

The input is resized to the working resolution, generated with the prompt
and a fixed negative prompt, and the first result is saved as PNG.
With --style the style's prompt is used and --prompt is appended to it.`,
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

			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "input image path")
	flags.StringVarP(&opts.output, "output", "o", "", "output PNG path")
	flags.StringVarP(&opts.prompt, "prompt", "p", "", "text prompt for generation")
	flags.Float64Var(&opts.strength, "strength", sdruntime.DefaultStrength, "how much to change from the input (0.0-1.0)")
	flags.Float64Var(&opts.guidanceScale, "guidance_scale", sdruntime.DefaultGuidanceScale, "how closely to follow the prompt")
	flags.IntVar(&opts.steps, "num_inference_steps", sdruntime.DefaultSteps, "number of denoising steps")
	flags.StringVarP(&opts.style, "style", "s", "", "use a style's prompt, with --prompt appended")
	flags.StringVar(&opts.provider, "provider", "", "generation backend: local, remote or openai (default NFTGEN_PROVIDER)")
	flags.Int64Var(&opts.seed, "seed", -1, "random seed, -1 for random")
	flags.BoolVar(&opts.download, "download", false, "download the model weights if missing (local provider)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func run(ctx context.Context, stdout, stderr io.Writer, opts *options, logger *logging.Logger) error {
	if err := core.RequireFile(opts.input); err != nil {
		return err
	}

	cfg, err := core.LoadConfig(core.WithProvider(opts.provider))
	if err != nil {
		return err
	}
	sdCfg := sdruntime.LoadSDConfig()

	prompt := opts.prompt
	if opts.style != "" {
		table, err := styles.LoadPromptTable(cfg.StylesFile)
		if err != nil {
			return err
		}
		prompt = table.BuildPrompt(opts.style, opts.prompt)
	}

	genOpts := imagegen.Options{
		Prompt:        prompt,
		Strength:      opts.strength,
		GuidanceScale: opts.guidanceScale,
		Steps:         opts.steps,
		Seed:          opts.seed,
	}
	if err := sdruntime.ValidatePrompt(genOpts.Prompt); err != nil {
		return fmt.Errorf("%w (set --prompt or --style)", err)
	}

	if opts.download && cfg.Provider == core.ProviderLocal && sdCfg.ModelPath == "" {
		path, err := downloadModel(ctx, stderr, cfg, sdCfg.ModelID, logger)
		if err != nil {
			return err
		}
		sdCfg.ModelPath = path
	}

	provider, err := imagegen.NewProvider(cfg, sdCfg, logger)
	if err != nil {
		return err
	}
	pipeline := imagegen.NewPipeline(provider, logger)
	defer pipeline.Close()

	if err := pipeline.CheckDependencies(ctx); err != nil {
		return err
	}

	logger.Debug("generating",
		zap.String("provider", provider.Name()),
		zap.String("prompt", genOpts.Prompt),
		zap.Int64("seed", genOpts.Seed))

	if err := pipeline.Transform(ctx, opts.input, opts.output, genOpts); err != nil {
		return fmt.Errorf("generating image: %w", err)
	}

	fmt.Fprintf(stdout, "Image saved to: %s\n", opts.output)
	return nil
}

// downloadModel fetches modelID into the models directory, printing
// progress on w, and returns the local weights path.
func downloadModel(ctx context.Context, w io.Writer, cfg *core.Config, modelID string, logger *logging.Logger) (string, error) {
	mm := core.NewModelManager(cfg.ModelsDir, nil, core.WithProgress(func(p core.ProgressInfo) {
		fmt.Fprintf(w, "\r  downloading %s: %s", modelID, p)
	}))
	dest, err := mm.GetModelPath(modelID)
	if err != nil {
		return "", err
	}

	model, ok := modelByName(modelID)
	if ok && model.SizeBytes > 0 {
		if err := validation.CheckDiskSpaceForModel(cfg.ModelsDir, model.SizeBytes, validation.DefaultBufferPercent); err != nil {
			return "", err
		}
	}

	fmt.Fprintf(w, "Fetching %s into %s\n", modelID, dest)
	path, err := mm.EnsureModelAvailable(ctx, modelID)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	logger.Info("model ready", zap.String("model", modelID), zap.String("path", path))
	return path, nil
}

func modelByName(name string) (core.ModelConfig, bool) {
	for _, m := range []core.ModelConfig{core.DefaultSDModel, core.TurboSDModel} {
		if m.Name == name {
			return m, true
		}
	}
	return core.ModelConfig{}, false
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, context.Canceled) {
			os.Exit(core.ExitCodeSIGINT)
		}
		os.Exit(core.ExitCodeFor(err))
	}
}
