package storecheck

import (
	"fmt"
	"os"
	"path/filepath"
)

// FailureArtifact is the file written in place of the remaining checkpoints
// when a run fails.
const FailureArtifact = "error.png"

// ArtifactStore writes the screenshots of one flow into its own directory.
type ArtifactStore struct {
	dir string
}

func NewArtifactStore(root, flow string) *ArtifactStore {
	return &ArtifactStore{dir: filepath.Join(root, cleanLabel(flow))}
}

func (s *ArtifactStore) Dir() string { return s.dir }

// Reset removes the screenshots of a previous run so the directory only ever
// holds the artifacts of the latest one.
func (s *ArtifactStore) Reset() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	stale, err := filepath.Glob(filepath.Join(s.dir, "*.png"))
	if err != nil {
		return err
	}
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// SaveCheckpoint writes png as <ordinal>_<label>.png.
func (s *ArtifactStore) SaveCheckpoint(ordinal int, label string, png []byte) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%02d_%s.png", ordinal, cleanLabel(label)))
	if err := saveFile(path, png); err != nil {
		return "", fmt.Errorf("save checkpoint %s: %w", label, err)
	}
	return path, nil
}

// SaveFailure writes png as error.png.
func (s *ArtifactStore) SaveFailure(png []byte) (string, error) {
	path := filepath.Join(s.dir, FailureArtifact)
	if err := saveFile(path, png); err != nil {
		return "", fmt.Errorf("save failure screenshot: %w", err)
	}
	return path, nil
}
