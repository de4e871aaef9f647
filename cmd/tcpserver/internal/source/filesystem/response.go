package filesystem

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileResponseSource reads the response from a file. A single trailing
// newline is dropped so editors do not change what peers receive.
type FileResponseSource struct {
	Path string
}

func NewFileResponseSource(path string) *FileResponseSource {
	return &FileResponseSource{Path: path}
}

func (p *FileResponseSource) Response(ctx context.Context) (string, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read response file %s: %w", p.Path, err)
	}

	response := strings.TrimSuffix(string(data), "\n")
	response = strings.TrimSuffix(response, "\r")
	if response == "" {
		return "", fmt.Errorf("response file %s is empty", p.Path)
	}
	return response, nil
}
