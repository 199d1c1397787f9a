// Package store writes downloaded composites to disk with content-hash
// duplicate suppression: an image whose bytes already exist anywhere in
// the target directory is skipped rather than saved twice.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// imageExtensions are the payload types the duplicate scan considers.
var imageExtensions = map[string]bool{".gif": true, ".png": true}

// Hash returns the hex SHA256 of payload bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FindDuplicate scans dir for an image file with identical content and
// returns its path, or "" when none exists. The scan is linear in file
// count; unreadable files are skipped rather than failing the scan.
func FindDuplicate(dir string, data []byte, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	newHash := Hash(data)

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("duplicate scan skipped", "dir", dir, "error", err)
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		existing, err := os.ReadFile(path)
		if err != nil {
			logger.Debug("unreadable file during duplicate scan", "path", path, "error", err)
			continue
		}
		if Hash(existing) == newHash {
			return path
		}
	}
	return ""
}

// SaveResult reports where a payload ended up and whether an identical
// file already held its bytes.
type SaveResult struct {
	Path      string
	Duplicate bool
}

// Save writes data to dir/filename unless an identical image is already
// present, in which case the existing path is returned and nothing is
// written. The directory is created as needed.
func Save(dir, filename string, data []byte, logger *slog.Logger) (SaveResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return SaveResult{}, fmt.Errorf("creating save directory: %w", err)
	}

	if existing := FindDuplicate(dir, data, logger); existing != "" {
		logger.Info("duplicate image skipped", "existing", existing, "bytes", len(data))
		return SaveResult{Path: existing, Duplicate: true}, nil
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return SaveResult{}, fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("image saved", "path", path, "bytes", len(data))
	return SaveResult{Path: path}, nil
}
