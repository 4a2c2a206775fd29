package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variables consulted for flag defaults
const (
	EnvModelsDir = "CLIPSIM_MODELS"
	EnvCacheDir  = "CLIPSIM_CACHE"
	EnvORTLib    = "CLIPSIM_ORT_LIB"
)

// GetDefaultModelsDir returns the default location of model weights
func GetDefaultModelsDir() string {
	if dir := os.Getenv(EnvModelsDir); dir != "" {
		return dir
	}

	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "models"
	}

	return filepath.Join(filepath.Dir(exePath), "models")
}

// GetDefaultCacheDir returns where remotely fetched weights are cached
func GetDefaultCacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}

	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "clipsim", "models")
	}

	return filepath.Join(base, "clipsim", "models")
}

// NormalizeExtension lowercases ext and ensures a leading dot
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// HasExtension reports whether path ends in ext, ignoring case
func HasExtension(path, ext string) bool {
	want := NormalizeExtension(ext)
	return want != "" && strings.ToLower(filepath.Ext(path)) == want
}
