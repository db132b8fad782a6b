package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsafePath = errors.New("unsafe path")

func PathExist(f string) (bool, error) {
	_, err := os.Stat(f)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

// SafeJoin joins a user supplied relative path to base and refuses anything
// that would end up outside of base
func SafeJoin(base string, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q must be relative", ErrUnsafePath, name)
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(absBase, name)
	rel, err := filepath.Rel(absBase, joined)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the export folder", ErrUnsafePath, name)
	}

	return joined, nil
}

// EnsureParentDir creates the folder a file will be written into
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), os.ModePerm)
}
