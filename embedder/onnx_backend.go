package embedder

import (
	"fmt"
	"sync"

	"clipsim/logging"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce    sync.Once
	ortInitErr error
)

// initONNXRuntime loads the shared library once per process
func initONNXRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

type ortModel struct {
	session   *ort.DynamicAdvancedSession
	path      string
	inputType ort.TensorElementDataType
}

func openORTModel(path string, cfg Config) (Model, error) {
	if err := initONNXRuntime(cfg.ONNXLibraryPath); err != nil {
		return nil, fmt.Errorf("onnxruntime: initialize: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("onnxruntime: inspect %s: %w", path, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnxruntime: %s has no inputs or outputs", path)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnxruntime: session options: %w", err)
	}
	defer opts.Destroy()
	if cfg.Threads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.Threads); err != nil {
			return nil, fmt.Errorf("onnxruntime: set threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnxruntime: load %s: %w", path, err)
	}

	logging.DebugLog("Loaded %s with ONNX Runtime (input %s, output %s, %d threads)",
		path, inputs[0].Name, outputs[0].Name, cfg.Threads)
	return &ortModel{session: session, path: path, inputType: inputs[0].DataType}, nil
}

func (m *ortModel) Run(in Input) ([]float32, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	dims := make([]int64, len(in.Shape))
	for i, d := range in.Shape {
		dims[i] = int64(d)
	}
	shape := ort.NewShape(dims...)

	input, err := m.inputTensor(shape, in)
	if err != nil {
		return nil, fmt.Errorf("onnxruntime: build input: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("onnxruntime: run %s: %w", m.path, err)
	}
	defer outputs[0].Destroy()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnxruntime: %s output is not float32", m.path)
	}
	data := tensor.GetData()
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

func (m *ortModel) inputTensor(shape ort.Shape, in Input) (ort.Value, error) {
	if in.Pixels != nil {
		return ort.NewTensor(shape, in.Pixels)
	}
	if m.inputType == ort.TensorElementDataTypeInt32 {
		return ort.NewTensor(shape, in.Tokens)
	}
	wide := make([]int64, len(in.Tokens))
	for i, v := range in.Tokens {
		wide[i] = int64(v)
	}
	return ort.NewTensor(shape, wide)
}

func (m *ortModel) Close() error {
	return m.session.Destroy()
}
