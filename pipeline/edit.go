package pipeline

import (
	"context"
	"fmt"
	"io"

	"clipsim/imageprocessor"
	"clipsim/types"

	"gocv.io/x/gocv"
)

// EditSample is one before/after image pair with its captions
type EditSample struct {
	Before        string
	After         string
	CaptionBefore string
	CaptionAfter  string
}

// RunEdit scores each sample and prints one line per sample to w
func RunEdit(ctx context.Context, enc EditEncoder, src ImageSource, samples []EditSample, w io.Writer) ([]types.EditScores, error) {
	if len(samples) == 0 {
		return []types.EditScores{}, nil
	}

	var before, after []gocv.Mat
	defer func() {
		imageprocessor.CloseAll(before)
		imageprocessor.CloseAll(after)
	}()

	captionsBefore := make([]string, len(samples))
	captionsAfter := make([]string, len(samples))
	for i, s := range samples {
		img0, err := src.LoadImage(s.Before)
		if err != nil {
			img0.Close()
			return nil, fmt.Errorf("cannot load %s: %w", s.Before, err)
		}
		before = append(before, img0)

		img1, err := src.LoadImage(s.After)
		if err != nil {
			img1.Close()
			return nil, fmt.Errorf("cannot load %s: %w", s.After, err)
		}
		after = append(after, img1)

		captionsBefore[i] = s.CaptionBefore
		captionsAfter[i] = s.CaptionAfter
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores, err := enc.Edit(before, after, captionsBefore, captionsAfter)
	if err != nil {
		return nil, fmt.Errorf("edit metrics: %w", err)
	}

	for i, s := range scores {
		if _, err := fmt.Fprintf(w, "Sample %d: image-text (before) %.4f, image-text (after) %.4f, direction %.4f, image %.4f\n",
			i, s.ImageText0, s.ImageText1, s.Direction, s.Image); err != nil {
			return scores, err
		}
	}
	return scores, nil
}
