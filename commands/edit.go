package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipsim/imageprocessor"
	"clipsim/pipeline"
)

var (
	beforeImages   []string
	afterImages    []string
	captionsBefore []string
	captionsAfter  []string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Score image edits against their captions",
	Long: `For each before/after image pair and its captions, print the
image-text similarity before and after the edit, the similarity between the
image change and the caption change, and the before/after image similarity.

Repeat the flags to score several samples; the i-th values form sample i.`,
	Args: cobra.NoArgs,
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringArrayVar(&beforeImages, "before", nil, "image before the edit (repeatable)")
	editCmd.Flags().StringArrayVar(&afterImages, "after", nil, "image after the edit (repeatable)")
	editCmd.Flags().StringArrayVar(&captionsBefore, "caption-before", nil, "caption of the original image (repeatable)")
	editCmd.Flags().StringArrayVar(&captionsAfter, "caption-after", nil, "caption of the edited image (repeatable)")
	editCmd.MarkFlagRequired("before")
	editCmd.MarkFlagRequired("after")
	editCmd.MarkFlagRequired("caption-before")
	editCmd.MarkFlagRequired("caption-after")
	addModelFlags(editCmd)

	rootCmd.AddCommand(editCmd)
}

// editSamples zips the repeated flags into samples
func editSamples(before, after, capBefore, capAfter []string) ([]pipeline.EditSample, error) {
	n := len(before)
	if len(after) != n || len(capBefore) != n || len(capAfter) != n {
		return nil, fmt.Errorf("--before, --after, --caption-before and --caption-after must be given the same number of times (got %d, %d, %d, %d)",
			len(before), len(after), len(capBefore), len(capAfter))
	}
	samples := make([]pipeline.EditSample, n)
	for i := range samples {
		samples[i] = pipeline.EditSample{
			Before:        before[i],
			After:         after[i],
			CaptionBefore: capBefore[i],
			CaptionAfter:  capAfter[i],
		}
	}
	return samples, nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	samples, err := editSamples(beforeImages, afterImages, captionsBefore, captionsAfter)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	emb, err := loadEmbedder(ctx, true)
	if err != nil {
		return err
	}
	defer emb.Close()

	registry := imageprocessor.NewImageLoaderRegistry()
	defer registry.Close()

	_, err = pipeline.RunEdit(ctx, emb, registry, samples, cmd.OutOrStdout())
	return err
}
