package cv

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// Engine names.
const (
	EngineDNN         = "DNN"
	EngineDNNOpenVINO = "DNN_OPENVINO"
	EngineDNNCUDA     = "DNN_CUDA"
)

// Accelerator names.
const (
	AcceleratorDefault    = "DEFAULT"
	AcceleratorCPU        = "CPU"
	AcceleratorGPU        = "GPU"
	AcceleratorGPUFP16    = "GPU_FP16"
	AcceleratorMyriad     = "MYRIAD"
	AcceleratorNvidia     = "NVIDIA"
	AcceleratorNvidiaFP16 = "NVIDIA_FP16"
)

var engines = map[string]gocv.NetBackendType{
	EngineDNN:         gocv.NetBackendDefault,
	EngineDNNOpenVINO: gocv.NetBackendOpenVINO,
	EngineDNNCUDA:     gocv.NetBackendCUDA,
}

var accelerators = map[string]gocv.NetTargetType{
	AcceleratorDefault:    gocv.NetTargetCPU,
	AcceleratorCPU:        gocv.NetTargetCPU,
	AcceleratorGPU:        gocv.NetTargetFP32,
	AcceleratorGPUFP16:    gocv.NetTargetFP16,
	AcceleratorMyriad:     gocv.NetTargetVPU,
	AcceleratorNvidia:     gocv.NetTargetCUDA,
	AcceleratorNvidiaFP16: gocv.NetTargetCUDAFP16,
}

// ParseEngine maps an engine name (case-insensitive) to a gocv backend.
func ParseEngine(name string) (gocv.NetBackendType, error) {
	b, ok := engines[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("%w: engine %q", ErrUnsupported, name)
	}
	return b, nil
}

// ParseAccelerator maps an accelerator name (case-insensitive) to a gocv
// target. DEFAULT resolves to CPU.
func ParseAccelerator(name string) (gocv.NetTargetType, error) {
	t, ok := accelerators[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("%w: accelerator %q", ErrUnsupported, name)
	}
	return t, nil
}

// CheckCompatible rejects pairings OpenCV cannot run: CUDA targets need
// the CUDA engine and the CUDA engine needs a CUDA target; Myriad sticks
// only run through OpenVINO.
func CheckCompatible(engine, accelerator string) error {
	e := strings.ToUpper(engine)
	a := strings.ToUpper(accelerator)

	cudaTarget := a == AcceleratorNvidia || a == AcceleratorNvidiaFP16
	switch {
	case e == EngineDNNCUDA && !cudaTarget:
		return fmt.Errorf("%w: %s requires an NVIDIA accelerator, got %s", ErrUnsupported, e, a)
	case cudaTarget && e != EngineDNNCUDA:
		return fmt.Errorf("%w: %s requires the %s engine, got %s", ErrUnsupported, a, EngineDNNCUDA, e)
	case a == AcceleratorMyriad && e != EngineDNNOpenVINO:
		return fmt.Errorf("%w: %s requires the %s engine, got %s", ErrUnsupported, a, EngineDNNOpenVINO, e)
	}
	return nil
}

// resolve parses and checks an engine/accelerator pair.
func resolve(engine, accelerator string) (gocv.NetBackendType, gocv.NetTargetType, error) {
	b, err := ParseEngine(engine)
	if err != nil {
		return 0, 0, err
	}
	t, err := ParseAccelerator(accelerator)
	if err != nil {
		return 0, 0, err
	}
	if err := CheckCompatible(engine, accelerator); err != nil {
		return 0, 0, err
	}
	return b, t, nil
}
