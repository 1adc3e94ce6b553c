package destination

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource reads destinations from a JSON array on disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) LoadAll(ctx context.Context) ([]*Destination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read destinations file: %w", err)
	}

	var dests []*Destination
	if err := json.Unmarshal(data, &dests); err != nil {
		return nil, fmt.Errorf("failed to decode destinations file %s: %w", s.path, err)
	}
	return dests, nil
}
