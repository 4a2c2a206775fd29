package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipsim/imageprocessor"
	"clipsim/pipeline"
	"clipsim/ranker"
)

var (
	folderPath  string
	extension   string
	topN        int
	mostSimilar bool
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print the least similar image pairs in a folder",
	Long: `Embed every image with the given extension in --folder and print the
--top pairs with the lowest cosine similarity, ascending. With --most the
most similar pairs are printed instead, highest first.`,
	Args: cobra.NoArgs,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().StringVarP(&folderPath, "folder", "f", "", "folder containing the images (required)")
	rankCmd.Flags().StringVar(&extension, "ext", imageprocessor.DefaultExtension, "image file extension")
	rankCmd.Flags().IntVarP(&topN, "top", "n", pipeline.DefaultTopN, "number of pairs to print")
	rankCmd.Flags().BoolVar(&mostSimilar, "most", false, "print the most similar pairs instead")
	rankCmd.MarkFlagRequired("folder")
	addModelFlags(rankCmd)

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	if topN <= 0 {
		return fmt.Errorf("%w: got %d", ranker.ErrInvalidTopN, topN)
	}

	ctx := cmd.Context()
	emb, err := loadEmbedder(ctx, false)
	if err != nil {
		return err
	}
	defer emb.Close()

	registry := imageprocessor.NewImageLoaderRegistry()
	defer registry.Close()

	order := ranker.Ascending
	if mostSimilar {
		order = ranker.Descending
	}

	_, err = pipeline.Run(ctx, emb, registry, pipeline.Options{
		FolderPath: folderPath,
		Extension:  extension,
		TopN:       topN,
		Order:      order,
	}, cmd.OutOrStdout())
	return err
}
