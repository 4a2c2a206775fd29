package embedder

import (
	"fmt"
	"strings"
)

// Backend names accepted in Config.Backend
const (
	BackendOpenCV      = "opencv"
	BackendONNXRuntime = "onnxruntime"
)

// Input is a single dense tensor fed to a model. Exactly one of
// Pixels or Tokens is set.
type Input struct {
	Shape  []int
	Pixels []float32
	Tokens []int32
}

func (in Input) elements() int {
	n := 1
	for _, d := range in.Shape {
		n *= d
	}
	return n
}

func (in Input) validate() error {
	want := in.elements()
	switch {
	case in.Pixels != nil && in.Tokens != nil:
		return fmt.Errorf("input has both pixels and tokens")
	case in.Pixels != nil && len(in.Pixels) != want:
		return fmt.Errorf("pixel tensor has %d values, shape %v needs %d", len(in.Pixels), in.Shape, want)
	case in.Tokens != nil && len(in.Tokens) != want:
		return fmt.Errorf("token tensor has %d values, shape %v needs %d", len(in.Tokens), in.Shape, want)
	case in.Pixels == nil && in.Tokens == nil:
		return fmt.Errorf("empty input")
	}
	return nil
}

// Model is one loaded ONNX graph with a single input and a single
// N×D float output.
type Model interface {
	Run(in Input) ([]float32, error)
	Close() error
}

type modelOpener func(path string, cfg Config) (Model, error)

func openerFor(backend string) (modelOpener, error) {
	switch strings.ToLower(backend) {
	case "", BackendOpenCV:
		return openGocvModel, nil
	case BackendONNXRuntime:
		return openORTModel, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, BackendOpenCV, BackendONNXRuntime)
	}
}
