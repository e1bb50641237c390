// Package config loads client profiles from YAML, JSON or CUE files using CUE
// as the underlying parser.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// LoadValue parses the file at path into a CUE value. The format is chosen by
// extension: .cue, .json, and YAML for everything else.
func LoadValue(path string) (cue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	return build(cuecontext.New(), path, data)
}

// LoadValueFromReader parses YAML (or JSON) from r into a CUE value.
func LoadValueFromReader(r io.Reader) (cue.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	return build(cuecontext.New(), "", data)
}

func build(ctx *cue.Context, path string, data []byte) (cue.Value, error) {
	var val cue.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		val = ctx.CompileBytes(data, cue.Filename(path))
	case ".json":
		val = ctx.CompileBytes(data, cue.Filename(path))
	default:
		file, err := yaml.Extract(path, data)
		if err != nil {
			return cue.Value{}, fmt.Errorf("failed to parse config: %w", err)
		}
		val = ctx.BuildFile(file)
	}
	if err := val.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to build CUE value: %w", err)
	}
	return val, nil
}

// Decode decodes val into a new T.
func Decode[T any](val cue.Value) (*T, error) {
	var out T
	if err := val.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &out, nil
}

// LoadFromFile loads path and decodes it into a new T.
func LoadFromFile[T any](path string) (*T, error) {
	val, err := LoadValue(path)
	if err != nil {
		return nil, err
	}
	return Decode[T](val)
}
