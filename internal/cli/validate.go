package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nback/internal/config"
)

// ValidationError is one problem found in a config file.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Config *config.Config    `json:"config,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a session config file",
		Long: `Validate a YAML session config without starting a session.

The file is checked against the CUE schema, decoded strictly and validated
field by field. Every problem is reported, not just the first.

Exit codes:
  0 - Config is valid
  1 - Config has errors
  2 - Command error (file unreadable)

Examples:
  nback validate nback.yaml
  nback validate nback.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("Validating %s", path)
	cfg, loadErrors := config.LoadFile(path, config.LoadModeCollectAll)

	if len(loadErrors) == 0 {
		return outputValidateSuccess(formatter, cfg)
	}

	errs := make([]ValidationError, 0, len(loadErrors))
	for _, err := range loadErrors {
		var le *config.LoadError
		if !errors.As(err, &le) {
			errs = append(errs, ValidationError{Code: config.ErrCodeInvalid, Message: err.Error()})
			continue
		}
		if le.Code == config.ErrCodeRead {
			_ = formatter.Error(le.Code, le.Message, nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", le.Code, le.Message))
		}
		errs = append(errs, ValidationError{Code: le.Code, Field: le.Field, Message: le.Message})
	}

	return outputValidationErrors(formatter, errs)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, cfg config.Config) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Config: &cfg})
	}

	fmt.Fprintf(formatter.Writer, "\u2713 Config valid (%d-back, %d sounds, %d positions, every %s)\n",
		cfg.N, cfg.Sounds, cfg.Positions, cfg.Interval)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeResponse(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
