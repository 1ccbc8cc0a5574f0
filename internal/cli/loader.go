package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileKind classifies a file given on the command line.
type FileKind int

const (
	KindUnknown FileKind = iota
	// KindScenario is a YAML or CUE scenario.
	KindScenario
	// KindScript is a JavaScript live-loop script.
	KindScript
)

// Error codes for command errors that do not come from the engine.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // Scenario or script failed to load
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeUnsupported = "E006" // Unsupported file type
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeGolden      = "E008" // Golden file mismatch
)

// LoadError represents an error that occurred while finding or loading files.
type LoadError struct {
	Code    string
	Message string
	Path    string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// classify returns the kind of a file by extension.
func classify(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".cue":
		return KindScenario
	case ".js":
		return KindScript
	}
	return KindUnknown
}

// requireFile checks that path exists and is a regular file.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &LoadError{Code: ErrCodeNotFound, Message: "file not found", Path: path}
	}
	if err != nil {
		return &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Path: path}
	}
	if info.IsDir() {
		return &LoadError{Code: ErrCodeUnsupported, Message: "is a directory", Path: path}
	}
	return nil
}

// FindScenarioFiles walks dir for scenario files, sorted by path. Files in
// golden directories are skipped. A non-empty filter is a glob matched
// against the file name without its extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "scenarios directory not found", Path: dir}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Path: dir}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "not a directory", Path: dir}
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		if classify(path) != KindScenario {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: err.Error(), Path: dir}
	}
	return files, nil
}
