// Package pathutil provides safe path handling for config, storage, and
// report output locations.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading ~ or ~/ to the current user's home directory.
// Paths without a leading ~ are returned unchanged.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) || strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	// ~user form is not supported
	return "", fmt.Errorf("unsupported home-relative path: %s", path)
}

// ValidatePath cleans a path, rejects directory traversal, and when base
// directories are given, requires the result to live under one of them.
func ValidatePath(path string, allowedBaseDirs ...string) (string, error) {
	absPath, err := cleanAbs(path)
	if err != nil {
		return "", err
	}

	if len(allowedBaseDirs) == 0 {
		return absPath, nil
	}

	for _, baseDir := range allowedBaseDirs {
		absBase, err := filepath.Abs(baseDir)
		if err != nil {
			continue
		}
		if withinBase(absPath, absBase) {
			return absPath, nil
		}
	}

	return "", fmt.Errorf("path %s is not within allowed directories", filepath.Clean(path))
}

// ValidateConfigPath validates a configuration file path. Config files must
// be YAML.
func ValidateConfigPath(path string) (string, error) {
	absPath, err := cleanAbs(path)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("config file must have .yaml or .yml extension, got %s", ext)
	}

	return absPath, nil
}

// ValidateOutputPath validates a report output path. The parent directory
// must already exist.
func ValidateOutputPath(path string) (string, error) {
	absPath, err := cleanAbs(path)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(absPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("parent directory does not exist: %s", dir)
	}

	return absPath, nil
}

// JoinAndValidate joins path components under a base directory and verifies
// the result stays inside it.
func JoinAndValidate(baseDir string, elems ...string) (string, error) {
	for _, elem := range elems {
		if strings.Contains(elem, "..") {
			return "", fmt.Errorf("path element contains directory traversal: %s", elem)
		}
	}

	joined := filepath.Join(append([]string{baseDir}, elems...)...)

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("getting absolute base directory: %w", err)
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("getting absolute joined path: %w", err)
	}

	if !withinBase(absJoined, absBase) {
		return "", fmt.Errorf("joined path %s is not within base directory %s", joined, baseDir)
	}

	return absJoined, nil
}

func cleanAbs(path string) (string, error) {
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("path contains directory traversal pattern: %s", path)
	}
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	return absPath, nil
}

func withinBase(absPath, absBase string) bool {
	if absPath == absBase {
		return true
	}
	if !strings.HasSuffix(absBase, string(filepath.Separator)) {
		absBase += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absBase)
}
