// Package config reads the optional config.yaml file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

// File mirrors config.yaml. Zero values mean "not set" so that callers can
// layer defaults, env and flags around it.
type File struct {
	WatchPath string         `yaml:"watch_path"`
	LogLevel  string         `yaml:"log_level"`
	Server    ServerSettings `yaml:"server"`
	Watch     WatchSettings  `yaml:"watch"`
	Render    RenderSettings `yaml:"render"`
}

type ServerSettings struct {
	Address        string   `yaml:"address"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	StaticDir      string   `yaml:"static_dir"`
}

type WatchSettings struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	EventBuffer  int           `yaml:"event_buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

type RenderSettings struct {
	Sanitize *bool `yaml:"sanitize"`
}

// Load reads and decodes path. A missing file is reported with found=false
// and no error; unknown keys are rejected so typos surface at startup.
func Load(path string) (File, bool, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, false, nil
		}
		return File{}, false, fmt.Errorf("read config %s: %w", path, err)
	}
	file, err := Parse(payload)
	if err != nil {
		return File{}, true, fmt.Errorf("parse config %s: %w", path, err)
	}
	return file, true, nil
}

func Parse(payload []byte) (File, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return File{}, err
	}
	return file, nil
}
