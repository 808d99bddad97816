package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/nback/internal/engine"
)

// Config is the full runtime configuration of a session.
type Config struct {
	// N is the back-reference depth.
	N int `yaml:"n" json:"n" validate:"gte=1"`

	// Sounds and Positions are the alphabet sizes.
	Sounds    int `yaml:"sounds" json:"sounds" validate:"gte=1"`
	Positions int `yaml:"positions" json:"positions" validate:"gte=1"`

	// Interval is the wall-clock time between ticks.
	Interval time.Duration `yaml:"interval" json:"interval" validate:"gt=0"`

	// Seed fixes the stimulus sequence. 0 draws a fresh seed per session.
	Seed int64 `yaml:"seed" json:"seed"`

	// Opportunities selects the opportunity policy: "match" or "comparable".
	Opportunities string `yaml:"opportunities" json:"opportunities" validate:"omitempty,oneof=match comparable"`

	// Database is the journal path. Empty keeps the journal in memory.
	Database string `yaml:"database" json:"database"`
}

// Default returns the stock configuration: 2-back over 8 sounds and a 3x3
// grid, one stimulus every 2.5 seconds.
func Default() Config {
	return Config{
		N:             2,
		Sounds:        8,
		Positions:     9,
		Interval:      2500 * time.Millisecond,
		Opportunities: engine.OpportunityOnMatch.String(),
	}
}

// EngineConfig returns the engine construction parameters.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{N: c.N, Sounds: c.Sounds, Positions: c.Positions}
}

// Policy parses Opportunities.
func (c Config) Policy() (engine.OpportunityPolicy, error) {
	return engine.ParseOpportunityPolicy(c.Opportunities)
}

// Validate checks the struct tags and returns the first violation.
func (c Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// validate returns one LoadError per violated field.
func (c Config) validate() []error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{&LoadError{Code: ErrCodeInvalid, Message: err.Error()}}
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, &LoadError{
			Code:    ErrCodeInvalid,
			Field:   fe.Field(),
			Message: describe(fe),
		})
	}
	return errs
}

// describe renders a validator failure in config-file terms.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be > %s, got %v", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// configValidate reports fields by their YAML key.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}
