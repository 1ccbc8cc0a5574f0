package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/porras/fake-sonic-pi/internal/harness"
	"github.com/porras/fake-sonic-pi/internal/script"
)

// FileValidation is the validation outcome for one file.
type FileValidation struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"` // "scenario" or "script"
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate scenarios and scripts without running them",
		Long: `Load and validate scenario files and scripts without running them.

Scenarios are parsed strictly (unknown fields are errors) and checked for
required fields, step kinds, command names and assertion shapes. Scripts
are compiled.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		v := validateFile(path)
		if !v.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, v)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeLoadFailed, Message: "validation failed"}
		}
		if err := writeJSON(w, response); err != nil {
			return err
		}
	} else {
		for _, v := range result.Files {
			if v.Valid {
				fmt.Fprintf(w, "OK   %s (%s %s)\n", v.Path, v.Kind, v.Name)
				continue
			}
			fmt.Fprintf(w, "FAIL %s\n  Error [%s]: %s\n", v.Path, v.Code, v.Error)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(path string) FileValidation {
	v := FileValidation{Path: path}
	fail := func(err error) FileValidation {
		v.Code = ErrCodeLoadFailed
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			v.Code = loadErr.Code
		}
		v.Error = err.Error()
		return v
	}

	if err := requireFile(path); err != nil {
		return fail(err)
	}

	switch classify(path) {
	case KindScenario:
		v.Kind = "scenario"
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return fail(err)
		}
		v.Name = scenario.Name
	case KindScript:
		v.Kind = "script"
		s, err := script.Load(path)
		if err != nil {
			return fail(err)
		}
		v.Name = s.Name()
	default:
		return fail(&LoadError{Code: ErrCodeUnsupported, Message: "expected .js, .yaml, .yml or .cue", Path: path})
	}

	v.Valid = true
	return v
}
