package config

import (
	"bytes"
	"fmt"
	"os"

	domainconfig "chatarchive/domain/config"

	"gopkg.in/yaml.v3"
)

// LoadTuning reads a YAML tuning file on top of base. Keys absent from the
// file keep their base values. An empty path returns a copy of base.
func LoadTuning(path string, base *domainconfig.DomainConfig) (*domainconfig.DomainConfig, error) {
	out := *base
	if path == "" {
		return &out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
		}
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning file %s: %w", path, err)
	}
	return &out, nil
}

// DomainConfigFor builds the effective domain configuration: environment
// defaults, then the detection timeout override, then the tuning file.
func DomainConfigFor(cfg *Config) (*domainconfig.DomainConfig, error) {
	base := domainconfig.LoadDomainConfig(cfg.Environment)
	if cfg.DetectionTimeout > 0 {
		base.Detection.Timeout = cfg.DetectionTimeout
	}
	if cfg.EmbeddingDimension > 0 {
		base.Scoring.EmbeddingDimension = cfg.EmbeddingDimension
	}
	return LoadTuning(cfg.TuningFile, base)
}
