// Package snapshot persists run snapshots: the canonical statistics record
// together with the raw per-source partial results that produced it.
// Snapshots are append-only, one JSON file per run, with a separate
// most-recent pointer file for the presentation layer.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vchiuchiolo/district-stats/pkg/constants"
	"github.com/vchiuchiolo/district-stats/pkg/errors"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// LatestFile is the name of the most-recent snapshot pointer file.
const LatestFile = "district_stats.json"

// runFileTimeFormat names per-run snapshot files by their UTC timestamp.
const runFileTimeFormat = "20060102T150405Z"

// Store writes snapshots under a single directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Write persists a snapshot as one human-readable JSON record: a per-run
// file keyed by the run timestamp and run ID plus the rewritten
// most-recent pointer. The run ID in the name keeps two runs within the
// same second from colliding. The pointer is written to a temporary file
// and renamed so readers never observe a partial record. Prior run files
// are never touched.
func (s *Store) Write(snap stats.Snapshot) (string, error) {
	if err := os.MkdirAll(s.dir, constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", s.dir, err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", errors.WrapParse("json", "snapshot", err)
	}
	data = append(data, '\n')

	name := "stats-" + snap.Timestamp.Format(runFileTimeFormat) + "-" + snap.RunID.String() + ".json"
	runPath := filepath.Join(s.dir, name)
	if err := os.WriteFile(runPath, data, constants.FilePermissions); err != nil {
		return "", errors.WrapIO("write", runPath, err)
	}

	if err := s.writeLatest(data); err != nil {
		return "", err
	}

	return runPath, nil
}

// writeLatest atomically replaces the most-recent pointer file.
func (s *Store) writeLatest(data []byte) error {
	latestPath := filepath.Join(s.dir, LatestFile)

	tmp, err := os.CreateTemp(s.dir, LatestFile+".tmp-*")
	if err != nil {
		return errors.WrapIO("create", latestPath, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("chmod", tmpPath, err)
	}

	if err := os.Rename(tmpPath, latestPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("rename", latestPath, err)
	}
	return nil
}

// Latest reads back the most recent snapshot.
func (s *Store) Latest() (stats.Snapshot, error) {
	var snap stats.Snapshot

	latestPath := filepath.Join(s.dir, LatestFile)
	data, err := os.ReadFile(latestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, errors.ErrNotFound
		}
		return snap, errors.WrapIO("read", latestPath, err)
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, errors.WrapParse("json", latestPath, err)
	}
	return snap, nil
}
