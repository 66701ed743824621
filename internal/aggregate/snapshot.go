package aggregate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"duckwire/internal/core"
)

const snapshotFile = "daily.json"

// SnapshotPath returns the location of the aggregation snapshot inside the
// data directory.
func SnapshotPath(dataDir string) string {
	return filepath.Join(dataDir, "news", snapshotFile)
}

// WriteSnapshot persists an aggregation result as the JSON fallback
// artifact used when the primary store is unreachable.
func WriteSnapshot(dataDir string, result core.AggregateResult) error {
	path := SnapshotPath(dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads the persisted aggregation result.
func ReadSnapshot(dataDir string) (core.AggregateResult, error) {
	var result core.AggregateResult
	data, err := os.ReadFile(SnapshotPath(dataDir))
	if err != nil {
		return result, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return result, nil
}
