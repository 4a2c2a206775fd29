package embedder

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"

	"clipsim/logging"

	"gocv.io/x/gocv"
)

type gocvModel struct {
	net  gocv.Net
	path string
}

func openGocvModel(path string, _ Config) (Model, error) {
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("opencv: cannot load network from %s", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	logging.DebugLog("Loaded %s with OpenCV DNN", path)
	return &gocvModel{net: net, path: path}, nil
}

func (m *gocvModel) Run(in Input) ([]float32, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var raw []byte
	var mt gocv.MatType
	if in.Tokens != nil {
		raw = make([]byte, 4*len(in.Tokens))
		for i, v := range in.Tokens {
			binary.LittleEndian.PutUint32(raw[4*i:], uint32(v))
		}
		mt = gocv.MatTypeCV32S
	} else {
		raw = make([]byte, 4*len(in.Pixels))
		for i, v := range in.Pixels {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
		}
		mt = gocv.MatTypeCV32F
	}

	blob, err := gocv.NewMatWithSizesFromBytes(in.Shape, mt, raw)
	if err != nil {
		return nil, fmt.Errorf("opencv: build input blob: %w", err)
	}
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()
	runtime.KeepAlive(raw)

	if out.Empty() {
		return nil, fmt.Errorf("opencv: %s produced no output", m.path)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("opencv: read output: %w", err)
	}
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

func (m *gocvModel) Close() error {
	return m.net.Close()
}
