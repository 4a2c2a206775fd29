package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipsim/embedder"
	"clipsim/logging"
	"clipsim/modelstore"
	"clipsim/utils"
)

var (
	// Global flags
	debugMode bool
	logPath   string

	// Model flags shared by rank and edit
	modelName   string
	modelsURI   string
	cacheDir    string
	backendName string
	ortLibPath  string
)

var rootCmd = &cobra.Command{
	Use:   "clipsim",
	Short: "Rank images in a folder by CLIP embedding similarity",
	Long: `clipsim - compare images with pretrained CLIP image encoders.

Every image in a folder is embedded, the cosine similarity of every pair is
computed and the least similar pairs are printed.

Model weights are read from a directory laid out as
  <models>/<variant>/visual.onnx
  <models>/<variant>/textual.onnx               (edit only)
  <models>/<variant>/bpe_simple_vocab_16e6.txt.gz (edit only)
where <variant> is the model name with "/" replaced by "-", e.g. ViT-L-14.
An s3://bucket/prefix location downloads the files once into --cache.

Examples:
  clipsim rank --folder ./photos
  clipsim rank --folder ./scans --ext .jpg --model ViT-B/32 --top 5
  clipsim edit --before a.png --after b.png --caption-before "a dog" --caption-after "a cat"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !debugMode {
			return nil
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to setup logging: %v\n", err)
			return nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Debug mode enabled. Logging to: %s\n", logPath)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "write debug logs to --logfile")
	rootCmd.PersistentFlags().StringVar(&logPath, "logfile", "clipsim.log", "debug log path")
}

// addModelFlags registers the flags that select and locate model weights
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&modelName, "model", embedder.DefaultVariant, "CLIP variant (see 'clipsim models')")
	cmd.Flags().StringVar(&modelsURI, "models", utils.GetDefaultModelsDir(), "model directory or s3://bucket/prefix")
	cmd.Flags().StringVar(&cacheDir, "cache", utils.GetDefaultCacheDir(), "download cache for s3 model stores")
	cmd.Flags().StringVar(&backendName, "backend", embedder.BackendOpenCV, "inference backend: opencv or onnxruntime")
	cmd.Flags().StringVar(&ortLibPath, "ort-lib", os.Getenv(utils.EnvORTLib), "path to the onnxruntime shared library")
}

// loadEmbedder validates the model name and loads its weights
func loadEmbedder(ctx context.Context, withText bool) (*embedder.Embedder, error) {
	if _, err := embedder.LookupVariant(modelName); err != nil {
		return nil, err
	}

	store, err := modelstore.Open(ctx, modelsURI, cacheDir)
	if err != nil {
		return nil, err
	}

	return embedder.New(ctx, embedder.Config{
		Variant:         modelName,
		Backend:         backendName,
		Store:           store,
		ONNXLibraryPath: ortLibPath,
		WithText:        withText,
	})
}
