/*
   Copyright The Soci Snapshotter Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultConfigPath is the default filesystem path for the tool configuration file.
	DefaultConfigPath = "/etc/provider-groups/config.toml"
)

type Config struct {
	// LogLevel is a logrus level name (trace, debug, info, warn, error, fatal, panic).
	LogLevel string `toml:"log_level"`

	// LogFormat is either "text" or "json".
	LogFormat string `toml:"log_format"`

	// OutputFormat is the format the merged service description is written in
	// ("yaml" or "toml"). Empty means the format of the input.
	OutputFormat string `toml:"output_format"`

	// MetricsTextfile is a path the run metrics are written to in the prometheus
	// text format. Empty disables writing metrics.
	MetricsTextfile string `toml:"metrics_textfile"`

	// Groups configures where groups and statements are read from.
	Groups GroupsConfig `toml:"groups"`
}

type configParser func(*Config) error

var parsers = []configParser{parseRootConfig, parseGroupsConfig}

// NewConfig returns an initialized Config with default values set.
func NewConfig() *Config {
	cfg := &Config{}
	for _, p := range parsers {
		p(cfg)
	}
	return cfg
}

// NewConfigFromToml reads the configuration at cfgPath. A missing file at the
// default path yields the default configuration.
func NewConfigFromToml(cfgPath string) (*Config, error) {
	f, err := os.Open(cfgPath)
	if err != nil {
		if os.IsNotExist(err) && cfgPath == DefaultConfigPath {
			return NewConfig(), nil
		}
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open config file %q: %w: %w", cfgPath, errdefs.ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to open config file %q: %w", cfgPath, err)
	}
	defer f.Close()

	cfg := NewConfig()
	if err = toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", cfgPath, err)
	}
	if err := parseConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", cfgPath, err)
	}
	return cfg, nil
}

func parseConfig(cfg *Config) error {
	var errs []error
	for _, p := range parsers {
		if err := p(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func parseRootConfig(cfg *Config) error {
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	var errs []error
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w: %w", errdefs.ErrInvalidArgument, err))
	}
	switch cfg.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log_format %q: %w", cfg.LogFormat, errdefs.ErrInvalidArgument))
	}
	switch cfg.OutputFormat {
	case "", OutputFormatYAML, OutputFormatTOML:
	default:
		errs = append(errs, fmt.Errorf("output_format %q: %w", cfg.OutputFormat, errdefs.ErrInvalidArgument))
	}
	return errors.Join(errs...)
}
