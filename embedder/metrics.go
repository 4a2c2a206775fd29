package embedder

import (
	"fmt"

	"clipsim/similarity"
	"clipsim/types"

	"gocv.io/x/gocv"
)

// EditMetrics scores aligned before/after samples. For sample i it returns
// cos(img0, txt0), cos(img1, txt1), cos(img1-img0, txt1-txt0) and cos(img0, img1).
func EditMetrics(img0, img1, txt0, txt1 [][]float32) ([]types.EditScores, error) {
	n := len(img0)
	if len(img1) != n || len(txt0) != n || len(txt1) != n {
		return nil, fmt.Errorf("edit batches differ in length: %d, %d, %d, %d",
			len(img0), len(img1), len(txt0), len(txt1))
	}

	imageSims, err := ImageSimilarity(img0, img1)
	if err != nil {
		return nil, err
	}

	scores := make([]types.EditScores, n)
	for i := range scores {
		scores[i] = types.EditScores{
			ImageText0: similarity.Cosine(img0[i], txt0[i]),
			ImageText1: similarity.Cosine(img1[i], txt1[i]),
			Direction:  similarity.Cosine(similarity.Sub(img1[i], img0[i]), similarity.Sub(txt1[i], txt0[i])),
			Image:      imageSims[i],
		}
	}
	return scores, nil
}

// ImageSimilarity returns cos(a[i], b[i]) for aligned batches
func ImageSimilarity(a, b [][]float32) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("batches differ in length: %d vs %d", len(a), len(b))
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = similarity.Cosine(a[i], b[i])
	}
	return out, nil
}

// Edit embeds before/after images and captions and scores each sample
func (e *Embedder) Edit(before, after []gocv.Mat, captionsBefore, captionsAfter []string) ([]types.EditScores, error) {
	if !e.HasText() {
		return nil, ErrNoTextEncoder
	}
	img0, err := e.EncodeImages(before)
	if err != nil {
		return nil, err
	}
	img1, err := e.EncodeImages(after)
	if err != nil {
		return nil, err
	}
	txt0, err := e.EncodeText(captionsBefore)
	if err != nil {
		return nil, err
	}
	txt1, err := e.EncodeText(captionsAfter)
	if err != nil {
		return nil, err
	}
	return EditMetrics(img0, img1, txt0, txt1)
}
