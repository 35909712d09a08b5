package host

import (
	"bytes"
	"io"
	"os"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/script-host/errors"
)

// Config is the on-disk shape of system and instance settings. Memory sizes
// accept human-readable suffixes ("128MiB", "1g").
type Config struct {
	BackgroundThreads int      `yaml:"background_threads"`
	Flags             []string `yaml:"flags"`

	HeapLimit string `yaml:"heap_limit"`

	AllowEval                 bool `yaml:"allow_eval"`
	DisableTopLevelAwait      bool `yaml:"disable_top_level_await"`
	NodeCompat                bool `yaml:"node_compat"`
	NodeProcessV2             bool `yaml:"node_process_v2"`
	CaptureThrowsAsRejections bool `yaml:"capture_throws_as_rejections"`
	JSPI                      bool `yaml:"jspi"`
	SetToStringTag            bool `yaml:"set_to_string_tag"`
}

// ParseConfig decodes a YAML config document. Unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config")
	}
	return &c, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config")
	}
	return ParseConfig(data)
}

// SystemConfig extracts the system-level settings.
func (c *Config) SystemConfig() SystemConfig {
	return SystemConfig{
		BackgroundThreads: c.BackgroundThreads,
		Flags:             c.Flags,
	}
}

// InstanceOptions extracts the per-instance settings.
func (c *Config) InstanceOptions() (InstanceOptions, error) {
	opts := InstanceOptions{
		AllowEval:                 c.AllowEval,
		DisableTopLevelAwait:      c.DisableTopLevelAwait,
		NodeCompat:                c.NodeCompat,
		NodeProcessV2:             c.NodeProcessV2,
		CaptureThrowsAsRejections: c.CaptureThrowsAsRejections,
		JSPI:                      c.JSPI,
		SetToStringTag:            c.SetToStringTag,
	}
	if c.HeapLimit != "" {
		n, err := units.RAMInBytes(c.HeapLimit)
		if err != nil {
			return opts, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse heap_limit")
		}
		opts.HeapLimit = uint64(n)
	}
	return opts, nil
}
