package app

import (
	"errors"
	"fmt"
)

// DefaultPipelinePath is used when no pipeline path is given: every .hcl
// file of the working directory.
const DefaultPipelinePath = "."

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // .hcl file, directory of .hcl files, or .yml file

	// Ref and Tag override TRAVIS_BRANCH and TRAVIS_TAG.
	Ref string
	Tag string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	HistoryDSN      string
}

func NewConfig(cfg Config) (*Config, error) {
	var errs []error
	if cfg.PipelinePath == "" {
		cfg.PipelinePath = DefaultPipelinePath
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	} else if _, ok := parseLevel(cfg.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	if cfg.WorkerCount < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("healthcheck-port %d is out of range", cfg.HealthcheckPort))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &cfg, nil
}
