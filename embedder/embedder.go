// Package embedder maps images and captions to L2-normalized CLIP
// embeddings using pretrained ONNX exports of the CLIP encoders.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"clipsim/logging"
	"clipsim/modelstore"
	"clipsim/signalhandler"
	"clipsim/similarity"

	"gocv.io/x/gocv"
)

var (
	// ErrNoTextEncoder is returned by EncodeText when no text weights were loaded
	ErrNoTextEncoder = errors.New("text encoder not loaded")
	// ErrZeroEmbedding means the encoder produced an all-zero row
	ErrZeroEmbedding = errors.New("embedding has zero norm")
)

// ZeroEmbeddingError reports which input row could not be normalized
type ZeroEmbeddingError struct {
	Row int
}

func (e *ZeroEmbeddingError) Error() string {
	return fmt.Sprintf("input %d: %v", e.Row, ErrZeroEmbedding)
}

func (e *ZeroEmbeddingError) Unwrap() error { return ErrZeroEmbedding }

// Model file names inside a variant directory
const (
	VisualFile = "visual.onnx"
	TextFile   = "textual.onnx"
	VocabFile  = "bpe_simple_vocab_16e6.txt.gz"
)

// Config selects the variant, the backend and where weights come from
type Config struct {
	Variant         string // defaults to DefaultVariant
	Backend         string // BackendOpenCV or BackendONNXRuntime
	Store           modelstore.Store
	ONNXLibraryPath string
	Threads         int // onnxruntime intra-op threads; 0 picks a default
	WithText        bool
}

// Embedder holds loaded encoder weights for one variant
type Embedder struct {
	variant   Variant
	visual    Model
	textual   Model
	tokenizer *Tokenizer
}

// New validates the variant and loads its weights once
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	if cfg.Variant == "" {
		cfg.Variant = DefaultVariant
	}
	variant, err := LookupVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("embedder: no model store configured")
	}
	open, err := openerFor(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if cfg.Threads <= 0 {
		cfg.Threads = signalhandler.GetOptimalProcs()
	}

	visualPath, err := cfg.Store.Fetch(ctx, path.Join(variant.DirName(), VisualFile))
	if err != nil {
		return nil, fmt.Errorf("load %s image encoder: %w", variant.Name, err)
	}
	visual, err := open(visualPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("load %s image encoder: %w", variant.Name, err)
	}
	e := &Embedder{variant: variant, visual: visual}

	if cfg.WithText {
		if err := e.loadText(ctx, cfg, open); err != nil {
			e.Close()
			return nil, err
		}
	}

	logging.LogInfo("Loaded CLIP %s (input %dpx, backend %s)", variant.Name, variant.InputSize, cfg.Backend)
	return e, nil
}

// loadText loads the text encoder and vocabulary. Missing files leave
// the embedder image-only.
func (e *Embedder) loadText(ctx context.Context, cfg Config, open modelOpener) error {
	textPath, err := cfg.Store.Fetch(ctx, path.Join(e.variant.DirName(), TextFile))
	if errors.Is(err, os.ErrNotExist) {
		logging.LogWarning("No text encoder for %s: %v", e.variant.Name, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s text encoder: %w", e.variant.Name, err)
	}
	vocabPath, err := cfg.Store.Fetch(ctx, path.Join(e.variant.DirName(), VocabFile))
	if errors.Is(err, os.ErrNotExist) {
		logging.LogWarning("No vocabulary for %s: %v", e.variant.Name, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s vocabulary: %w", e.variant.Name, err)
	}

	tok, err := LoadTokenizer(vocabPath)
	if err != nil {
		return fmt.Errorf("load %s vocabulary: %w", e.variant.Name, err)
	}
	textual, err := open(textPath, cfg)
	if err != nil {
		return fmt.Errorf("load %s text encoder: %w", e.variant.Name, err)
	}
	e.textual = textual
	e.tokenizer = tok
	return nil
}

// HasText reports whether EncodeText is available
func (e *Embedder) HasText() bool { return e.textual != nil && e.tokenizer != nil }

// EncodeImages embeds 8-bit BGR images in a single forward pass.
// Row i belongs to images[i].
func (e *Embedder) EncodeImages(images []gocv.Mat) ([][]float32, error) {
	if len(images) == 0 {
		return [][]float32{}, nil
	}

	size := e.variant.InputSize
	pixels, err := preprocessBatch(images, size)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	rows, err := e.run(e.visual, Input{Shape: []int{len(images), 3, size, size}, Pixels: pixels}, len(images))
	if err != nil {
		return nil, fmt.Errorf("encode images: %w", err)
	}
	return rows, nil
}

// EncodeText embeds captions. Row i belongs to texts[i].
func (e *Embedder) EncodeText(texts []string) ([][]float32, error) {
	if !e.HasText() {
		return nil, ErrNoTextEncoder
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	tokens := e.tokenizer.Tokenize(texts)
	flat := make([]int32, 0, len(tokens)*ContextLength)
	for _, row := range tokens {
		flat = append(flat, row...)
	}
	rows, err := e.run(e.textual, Input{Shape: []int{len(texts), ContextLength}, Tokens: flat}, len(texts))
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	return rows, nil
}

// run executes the model, splits its output into n rows and normalizes them.
// A row with zero norm fails the whole call.
func (e *Embedder) run(m Model, in Input, n int) ([][]float32, error) {
	data, err := m.Run(in)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%n != 0 {
		return nil, fmt.Errorf("model returned %d values for %d inputs", len(data), n)
	}
	dim := len(data) / n
	if dim != e.variant.Dim {
		logging.DebugLog("%s output width %d differs from nominal %d", e.variant.Name, dim, e.variant.Dim)
	}

	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = data[i*dim : (i+1)*dim : (i+1)*dim]
		if !similarity.Normalize(rows[i]) {
			return nil, &ZeroEmbeddingError{Row: i}
		}
	}
	return rows, nil
}

// Close releases the loaded weights
func (e *Embedder) Close() error {
	var errs []error
	if e.visual != nil {
		errs = append(errs, e.visual.Close())
		e.visual = nil
	}
	if e.textual != nil {
		errs = append(errs, e.textual.Close())
		e.textual = nil
	}
	return errors.Join(errs...)
}
