package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides shared library discovery.
const EnvLibraryPath = "BARSCAN_ONNXRUNTIME_LIB"

var envMu sync.Mutex

// libraryName returns the ONNX Runtime shared library file name for this OS.
func libraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// CandidateLibraryPaths lists where the shared library is searched, in order.
func CandidateLibraryPaths(useGPU bool) []string {
	var paths []string
	if p := os.Getenv(EnvLibraryPath); p != "" {
		paths = append(paths, p)
	}
	name, err := libraryName()
	if err != nil {
		return paths
	}
	if useGPU {
		paths = append(paths, filepath.Join("/opt/onnxruntime/gpu/lib", name))
	}
	paths = append(paths,
		filepath.Join("/usr/local/lib", name),
		filepath.Join("/usr/lib", name),
		filepath.Join("/opt/onnxruntime/cpu/lib", name),
	)
	if wd, err := os.Getwd(); err == nil {
		if useGPU {
			paths = append(paths, filepath.Join(wd, "onnxruntime", "gpu", "lib", name))
		}
		paths = append(paths, filepath.Join(wd, "onnxruntime", "lib", name))
	}
	return paths
}

// InitEnvironment locates the shared library and initializes the process
// wide ONNX Runtime environment. It is safe to call repeatedly.
func InitEnvironment(useGPU bool) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	found := false
	for _, p := range CandidateLibraryPaths(useGPU) {
		if _, err := os.Stat(p); err == nil {
			ort.SetSharedLibraryPath(p)
			found = true
			break
		}
	}
	if !found {
		return errors.New("ONNX Runtime shared library not found; set " + EnvLibraryPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}

// DestroyEnvironment tears down the runtime at process exit.
func DestroyEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
