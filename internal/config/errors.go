package config

import "fmt"

// LoadError describes one problem with a configuration source.
type LoadError struct {
	Code    string
	Path    string // source file, if any
	Field   string // config key, if known
	Message string
}

func (e *LoadError) Error() string {
	var loc string
	switch {
	case e.Path != "" && e.Field != "":
		loc = e.Path + ": " + e.Field + ": "
	case e.Path != "":
		loc = e.Path + ": "
	case e.Field != "":
		loc = e.Field + ": "
	}
	return fmt.Sprintf("%s%s: %s", loc, e.Code, e.Message)
}

// Error code constants.
const (
	ErrCodeRead    = "E001" // config file unreadable
	ErrCodeSyntax  = "E002" // not valid YAML
	ErrCodeSchema  = "E003" // rejected by the CUE schema
	ErrCodeDecode  = "E004" // strict decode failed
	ErrCodeInvalid = "E005" // field validation failed
	ErrCodeEnv     = "E006" // environment override unparsable
)
