package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by JobFile.Output.Format.
const (
	FormatCSV      = "csv"
	FormatSplitCSV = "split-csv"
	FormatJSON     = "json"
)

// JobFile describes one classification run. Values here override the
// environment defaults; CLI flags override the job file.
type JobFile struct {
	Input struct {
		Path    string        `yaml:"path"`
		Columns ColumnMapping `yaml:"columns"`
	} `yaml:"input"`
	Output struct {
		Path         string `yaml:"path"`
		FailuresPath string `yaml:"failures_path"`
		Format       string `yaml:"format"`
	} `yaml:"output"`
	PolicyPath     string `yaml:"policy_path"`
	PrefilterBlank bool   `yaml:"prefilter_blank"`
	Limit          int    `yaml:"limit"`
	Runner         struct {
		Concurrency *int   `yaml:"concurrency"`
		MaxRetries  *int   `yaml:"max_retries"`
		Backoff     string `yaml:"backoff"`
	} `yaml:"runner"`
}

// ColumnMapping names the source table columns that feed a ReviewRecord.
// Empty fields fall back to the dataset defaults.
type ColumnMapping struct {
	BusinessName string `yaml:"business_name"`
	Rating       string `yaml:"rating"`
	Text         string `yaml:"text"`
	Description  string `yaml:"description"`
	Category     string `yaml:"category"`
}

// LoadJobFile reads and validates a YAML job file.
func LoadJobFile(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file %s: %w", path, err)
	}
	return ParseJobFile(data)
}

// ParseJobFile decodes and validates job file contents.
func ParseJobFile(data []byte) (*JobFile, error) {
	var jf JobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("parsing job file: %w", err)
	}
	if jf.Output.Format == "" {
		jf.Output.Format = FormatCSV
	}
	if err := jf.validate(); err != nil {
		return nil, err
	}
	return &jf, nil
}

func (jf *JobFile) validate() error {
	switch jf.Output.Format {
	case FormatCSV, FormatSplitCSV, FormatJSON:
	default:
		return fmt.Errorf("output.format must be one of csv, split-csv, json; got %q", jf.Output.Format)
	}
	if jf.Output.Format == FormatSplitCSV && jf.Output.FailuresPath == "" {
		return fmt.Errorf("output.failures_path is required when output.format is split-csv")
	}
	if jf.Runner.Concurrency != nil && *jf.Runner.Concurrency < 1 {
		return fmt.Errorf("runner.concurrency must be at least 1, got %d", *jf.Runner.Concurrency)
	}
	if jf.Runner.MaxRetries != nil && *jf.Runner.MaxRetries < 0 {
		return fmt.Errorf("runner.max_retries must not be negative, got %d", *jf.Runner.MaxRetries)
	}
	if jf.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", jf.Limit)
	}
	return nil
}

// ApplyTo overlays the job file's runner settings onto rc.
func (jf *JobFile) ApplyTo(rc *RunnerConfig) error {
	if jf.Runner.Concurrency != nil {
		rc.Concurrency = *jf.Runner.Concurrency
	}
	if jf.Runner.MaxRetries != nil {
		rc.MaxRetries = *jf.Runner.MaxRetries
	}
	if jf.Runner.Backoff != "" {
		d, err := time.ParseDuration(jf.Runner.Backoff)
		if err != nil {
			return fmt.Errorf("runner.backoff: %w", err)
		}
		rc.Backoff = d
	}
	return nil
}
