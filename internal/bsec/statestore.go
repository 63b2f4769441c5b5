package bsec

import (
	"fmt"
	"os"
	"path/filepath"
)

// stateFileMode is the permission mode for a newly created state file.
const stateFileMode = 0644

// StateStore guarantees a calibration-state file exists in the working
// directory. The file's contents are opaque: the child process alone reads
// and writes them, and an existing file is never touched — overwriting it
// would discard calibration the fusion algorithm spent days accumulating.
type StateStore struct {
	baseDir string
	logger  Logger
}

// NewStateStore creates a state store rooted at the working directory.
func NewStateStore(baseDir string) *StateStore {
	return &StateStore{
		baseDir: baseDir,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *StateStore) SetLogger(logger Logger) {
	s.logger = logger
}

// Ensure returns the state file path, exclusive-creating an empty file only
// when none exists.
func (s *StateStore) Ensure() (string, error) {
	statePath := filepath.Join(s.baseDir, StateFileName)

	f, err := os.OpenFile(statePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, stateFileMode)
	if err != nil {
		if os.IsExist(err) {
			s.logger.Info("found existing calibration state file, skipping creation", "path", statePath)
			return statePath, nil
		}
		return "", fmt.Errorf("creating state file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("creating state file: %w", err)
	}
	s.logger.Info("created blank calibration state file", "path", statePath)
	return statePath, nil
}
