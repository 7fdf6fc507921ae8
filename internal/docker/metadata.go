package docker

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata is the subset of the buildx --metadata-file report we use.
type Metadata struct {
	Digest    string `json:"containerimage.digest"`
	ImageName string `json:"image.name"`
	BuildRef  string `json:"buildx.build.ref"`
}

// ReadMetadata parses a buildx metadata file.
func ReadMetadata(path string) (Metadata, error) {
	var md Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		return md, fmt.Errorf("read build metadata: %w", err)
	}
	if err := json.Unmarshal(data, &md); err != nil {
		return md, fmt.Errorf("parse build metadata %s: %w", path, err)
	}
	return md, nil
}
