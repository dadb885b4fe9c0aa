package jobfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned for an empty job file.
var ErrEmpty = errors.New("job file is empty")

// Load reads, validates and defaults a job file.
//
// .json files are parsed as JSON; anything else as YAML, which also accepts
// JSON documents.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job file not found: %s: %w", path, os.ErrNotExist)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading job file: %s", path)
		}
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromReader reads a job definition from r. path is used for format
// detection and error messages.
func LoadFromReader(r io.Reader, path string) (*Job, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes parses, validates and defaults a job definition.
func LoadFromBytes(data []byte, path string) (*Job, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	var (
		job *Job
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		job, err = parseJSON(data)
	} else {
		job, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

func parseJSON(data []byte) (*Job, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var job Job
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("invalid JSON in job file: %w", err)
	}
	return &job, nil
}

func parseYAML(data []byte) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var job Job
	if err := dec.Decode(&job); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("invalid YAML in job file: %w", err)
	}
	return &job, nil
}
