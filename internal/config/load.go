package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load reads and checks the config file at path, failing on the first
// problem. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, errs := LoadFile(path, LoadModeFailFast)
	if len(errs) > 0 {
		return Config{}, errs[0]
	}
	return cfg, nil
}

// LoadFile reads the config file at path and checks it.
// Every returned error is a *LoadError carrying path.
func LoadFile(path string, mode LoadMode) (Config, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, []error{&LoadError{Code: ErrCodeRead, Path: path, Message: err.Error()}}
	}

	cfg, errs := Check(data, mode)
	for _, e := range errs {
		var le *LoadError
		if errors.As(e, &le) {
			le.Path = path
		}
	}
	return cfg, errs
}

// Check parses a YAML document over Default() and validates the result.
//
// The document passes three gates in order: the CUE schema, a strict YAML
// decode, and struct validation. A later gate runs only if the earlier ones
// passed, so each problem is reported once.
func Check(data []byte, mode LoadMode) (Config, []error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, []error{&LoadError{Code: ErrCodeSyntax, Message: err.Error()}}
	}

	if errs := checkSchema(raw); len(errs) > 0 {
		return Config{}, limit(errs, mode)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, []error{&LoadError{Code: ErrCodeDecode, Message: err.Error()}}
	}

	if errs := cfg.validate(); len(errs) > 0 {
		return cfg, limit(errs, mode)
	}
	return cfg, nil
}

// checkSchema unifies the raw document with #Config.
func checkSchema(raw map[string]any) []error {
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return []error{&LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("compiling schema: %v", err)}}
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return []error{&LoadError{Code: ErrCodeSchema, Message: err.Error()}}
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(doc)
	err := v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []error
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		errs = append(errs, &LoadError{
			Code:    ErrCodeSchema,
			Field:   fieldPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return errs
}

// fieldPath drops definition selectors such as #Config from a CUE path.
func fieldPath(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if !strings.HasPrefix(p, "#") {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

func limit(errs []error, mode LoadMode) []error {
	if mode == LoadModeFailFast && len(errs) > 1 {
		return errs[:1]
	}
	return errs
}
