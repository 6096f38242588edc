package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// The CURRENT manifest names the committed segment. It is replaced via
// tmp+rename so readers resolve either the old or the new segment, never a
// torn write.
const manifestName = "CURRENT"

func writeManifest(dir, segmentName string) error {
	finalPath := filepath.Join(dir, manifestName)
	tmpPath := finalPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	if _, err := f.WriteString(segmentName + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing manifest: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

func readManifest(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(data))
	if name == "" || !strings.HasSuffix(name, SegmentSuffix) {
		return "", fmt.Errorf("malformed manifest %q", name)
	}
	return name, nil
}
