// Package models resolves where barcode detection models live on disk.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Detection model file names.
const (
	DetectionNano  = "barcode_det_n.onnx"
	DetectionSmall = "barcode_det_s.onnx"
)

// TypeDetection is the subdirectory holding detection models.
const TypeDetection = "detection"

// DefaultModelsDir is used when nothing else is configured.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "BARSCAN_MODELS_DIR"

// ModelInfo describes a known model file.
type ModelInfo struct {
	Name        string
	Type        string
	Description string
	Filename    string
}

// findProjectRoot walks up from the working directory to the nearest go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root (go.mod not found)")
		}
		dir = parent
	}
}

// GetModelsDir picks the models directory.
// Priority: explicit argument, BARSCAN_MODELS_DIR, <project root>/models, ./models.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if env := os.Getenv(EnvModelsDir); env != "" {
		return env
	}
	if root, err := findProjectRoot(); err == nil {
		return filepath.Join(root, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// ResolveModelPath turns a model reference into a file path. Absolute paths
// and paths containing a separator are returned unchanged. Bare file names
// are looked up in <dir>/detection first and then in <dir> itself.
func ResolveModelPath(modelsDir, name string) string {
	if name == "" {
		name = DetectionNano
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	base := GetModelsDir(modelsDir)
	organized := filepath.Join(base, TypeDetection, name)
	if _, err := os.Stat(organized); err == nil {
		return organized
	}
	return filepath.Join(base, name)
}

// ValidateModelExists checks that a model file exists.
func ValidateModelExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", path)
	}
	return nil
}

// ListAvailableModels returns the detection models barscan knows about.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{Name: "nano", Type: TypeDetection, Description: "Small YOLO barcode detector, CPU friendly", Filename: DetectionNano},
		{Name: "small", Type: TypeDetection, Description: "Larger YOLO barcode detector", Filename: DetectionSmall},
	}
}
