// Package config loads nback configuration.
//
// A configuration is resolved in layers:
//
//  1. Default values (Default)
//  2. A YAML file, checked against an embedded CUE schema and decoded
//     strictly (unknown keys are errors)
//  3. .env files and NBACK_* environment variables
//
// The merged result is validated with struct tags before use. Check
// collects every problem in a file for the validate command; Load stops at
// the first.
package config
