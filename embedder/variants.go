package embedder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedModel is returned for model names outside the variant table
var ErrUnsupportedModel = errors.New("unsupported model")

// DefaultVariant is used when no model name is given
const DefaultVariant = "ViT-L/14"

// Variant describes one pretrained CLIP checkpoint
type Variant struct {
	Name      string
	InputSize int // square input resolution in pixels
	Dim       int // embedding width
}

// DirName is the directory holding the variant's files in a model store
func (v Variant) DirName() string {
	return strings.ReplaceAll(v.Name, "/", "-")
}

var variants = []Variant{
	{Name: "RN50", InputSize: 224, Dim: 1024},
	{Name: "RN101", InputSize: 224, Dim: 512},
	{Name: "RN50x4", InputSize: 288, Dim: 640},
	{Name: "RN50x16", InputSize: 384, Dim: 768},
	{Name: "RN50x64", InputSize: 448, Dim: 1024},
	{Name: "ViT-B/32", InputSize: 224, Dim: 512},
	{Name: "ViT-B/16", InputSize: 224, Dim: 512},
	{Name: "ViT-L/14", InputSize: 224, Dim: 768},
	{Name: "ViT-L/14@336px", InputSize: 336, Dim: 768},
}

// Variants lists every supported checkpoint in table order
func Variants() []Variant {
	out := make([]Variant, len(variants))
	copy(out, variants)
	return out
}

// LookupVariant finds a variant by its exact name
func LookupVariant(name string) (Variant, error) {
	for _, v := range variants {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, name)
}
