// Package pipeline wires image loading, embedding, similarity and ranking
// into the end-to-end runs exposed by the CLI.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"clipsim/embedder"
	"clipsim/imageprocessor"
	"clipsim/logging"
	"clipsim/ranker"
	"clipsim/similarity"
	"clipsim/types"

	"gocv.io/x/gocv"
)

// DefaultTopN is the number of pairs reported when none is requested
const DefaultTopN = 3

// ImageEncoder maps decoded images to L2-normalized embeddings
type ImageEncoder interface {
	EncodeImages(images []gocv.Mat) ([][]float32, error)
}

// EditEncoder scores aligned before/after image and caption batches
type EditEncoder interface {
	Edit(before, after []gocv.Mat, captionsBefore, captionsAfter []string) ([]types.EditScores, error)
}

// ImageSource decodes images from disk into 8-bit BGR Mats
type ImageSource interface {
	LoadImagesFromFolder(folder, ext string) ([]string, []gocv.Mat, error)
	LoadImage(path string) (gocv.Mat, error)
}

// Options controls a ranking run
type Options struct {
	FolderPath string
	Extension  string // defaults to imageprocessor.DefaultExtension
	TopN       int    // defaults to DefaultTopN
	Order      ranker.Order
}

// Run loads every matching image in the folder, embeds them, ranks all
// pairs and prints one line per reported pair to w.
func Run(ctx context.Context, enc ImageEncoder, src ImageSource, opts Options, w io.Writer) ([]types.RankedPair, error) {
	if opts.Extension == "" {
		opts.Extension = imageprocessor.DefaultExtension
	}
	if opts.TopN == 0 {
		opts.TopN = DefaultTopN
	}
	if opts.TopN < 0 {
		return nil, fmt.Errorf("%w: got %d", ranker.ErrInvalidTopN, opts.TopN)
	}

	filenames, images, err := src.LoadImagesFromFolder(opts.FolderPath, opts.Extension)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		logging.LogWarning("No %s images found in %s", opts.Extension, opts.FolderPath)
		return []types.RankedPair{}, nil
	}
	logging.LogInfo("Embedding %d images from %s", len(images), opts.FolderPath)

	embeddings, err := embed(ctx, enc, filenames, images)
	if err != nil {
		return nil, err
	}

	sim, err := similarity.Matrix(embeddings)
	if err != nil {
		return nil, fmt.Errorf("similarity: %w", err)
	}

	pairs, err := ranker.Rank(sim, filenames, opts.TopN, opts.Order)
	if err != nil {
		return nil, err
	}

	for _, p := range pairs {
		if _, err := fmt.Fprintf(w, "Images: %s and %s have a similarity score of %.4f\n", p.First, p.Second, p.Score); err != nil {
			return pairs, err
		}
	}
	return pairs, nil
}

// embed runs the encoder and releases the Mats regardless of outcome.
// An all-zero embedding has no direction and fails the run.
func embed(ctx context.Context, enc ImageEncoder, filenames []string, images []gocv.Mat) ([][]float32, error) {
	defer imageprocessor.CloseAll(images)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings, err := enc.EncodeImages(images)
	var zero *embedder.ZeroEmbeddingError
	if errors.As(err, &zero) && zero.Row >= 0 && zero.Row < len(filenames) {
		return nil, fmt.Errorf("embed %s: %w", filenames[zero.Row], err)
	}
	if err != nil {
		return nil, fmt.Errorf("embed images: %w", err)
	}
	if len(embeddings) != len(images) {
		return nil, fmt.Errorf("encoder returned %d embeddings for %d images", len(embeddings), len(images))
	}
	for i, v := range embeddings {
		if isZero(v) {
			return nil, fmt.Errorf("embed %s: %w", filenames[i], embedder.ErrZeroEmbedding)
		}
	}
	return embeddings, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
