package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"watchfile/internal/config"
	"watchfile/internal/logging"
	"watchfile/internal/session"
	"watchfile/internal/watcher"
)

type Config struct {
	ConfigPath     string
	WatchPath      string
	Address        string
	Port           int
	AllowedOrigins []string
	StaticDir      string
	PollInterval   time.Duration
	EventBuffer    int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	Sanitize       bool
	LogLevel       logging.Level
	ShowVersion    bool
	Sources        map[string]configSource
}

type configSource string

const (
	sourceDefault configSource = "default"
	sourceFile    configSource = "file"
	sourceEnv     configSource = "env"
	sourceFlag    configSource = "flag"
)

type flagValues struct {
	ConfigPath   string
	WatchPath    string
	Address      string
	Port         int
	StaticDir    string
	PollInterval time.Duration
	Sanitize     bool
	LogLevel     string
	Verbose      bool
	Quiet        bool
	Version      bool
	Set          map[string]bool
}

func defaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultPath,
		WatchPath:    "README.md",
		Address:      "127.0.0.1",
		Port:         8080,
		PollInterval: watcher.DefaultPollInterval,
		EventBuffer:  watcher.DefaultBuffer,
		WriteTimeout: session.DefaultWriteTimeout,
		PingInterval: session.DefaultPingInterval,
		LogLevel:     logging.LevelInfo,
		Sources:      make(map[string]configSource),
	}
}

// loadConfig layers defaults, config.yaml, WATCHFILE_* env vars and flags,
// later sources winning.
func loadConfig(args []string) (Config, error) {
	flags, err := parseFlags(args)
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig()
	cfg.ShowVersion = flags.Version
	if flags.Version {
		return cfg, nil
	}

	configPath := cfg.ConfigPath
	explicitConfig := false
	if raw := strings.TrimSpace(os.Getenv("WATCHFILE_CONFIG")); raw != "" {
		configPath = raw
		explicitConfig = true
	}
	if flags.Set["config"] {
		configPath = flags.ConfigPath
		explicitConfig = true
	}
	cfg.ConfigPath = configPath

	file, found, err := config.Load(configPath)
	if err != nil {
		return Config{}, err
	}
	if !found && explicitConfig {
		return Config{}, fmt.Errorf("config file %s not found", configPath)
	}
	applyFile(&cfg, file)

	if raw := strings.TrimSpace(os.Getenv("WATCHFILE_PATH")); raw != "" {
		cfg.WatchPath = raw
		cfg.Sources["path"] = sourceEnv
	}
	if raw := strings.TrimSpace(os.Getenv("WATCHFILE_ADDRESS")); raw != "" {
		cfg.Address = raw
		cfg.Sources["address"] = sourceEnv
	}
	if raw := strings.TrimSpace(os.Getenv("WATCHFILE_PORT")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WATCHFILE_PORT %q", raw)
		}
		cfg.Port = parsed
		cfg.Sources["port"] = sourceEnv
	}
	if raw := strings.TrimSpace(os.Getenv("WATCHFILE_LOG_LEVEL")); raw != "" {
		level, ok := logging.ParseLevel(raw)
		if !ok {
			return Config{}, fmt.Errorf("invalid WATCHFILE_LOG_LEVEL %q", raw)
		}
		cfg.LogLevel = level
		cfg.Sources["log-level"] = sourceEnv
	}

	if flags.Set["path"] {
		cfg.WatchPath = flags.WatchPath
		cfg.Sources["path"] = sourceFlag
	}
	if flags.Set["address"] {
		cfg.Address = flags.Address
		cfg.Sources["address"] = sourceFlag
	}
	if flags.Set["port"] {
		cfg.Port = flags.Port
		cfg.Sources["port"] = sourceFlag
	}
	if flags.Set["static-dir"] {
		cfg.StaticDir = flags.StaticDir
		cfg.Sources["static-dir"] = sourceFlag
	}
	if flags.Set["poll-interval"] {
		cfg.PollInterval = flags.PollInterval
		cfg.Sources["poll-interval"] = sourceFlag
	}
	if flags.Set["sanitize"] {
		cfg.Sanitize = flags.Sanitize
		cfg.Sources["sanitize"] = sourceFlag
	}
	if flags.Set["log-level"] {
		level, ok := logging.ParseLevel(flags.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("invalid --log-level %q", flags.LogLevel)
		}
		cfg.LogLevel = level
		cfg.Sources["log-level"] = sourceFlag
	}
	if flags.Verbose {
		cfg.LogLevel = logging.LevelDebug
		cfg.Sources["log-level"] = sourceFlag
	} else if flags.Quiet {
		cfg.LogLevel = logging.LevelWarning
		cfg.Sources["log-level"] = sourceFlag
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, file config.File) {
	if strings.TrimSpace(file.WatchPath) != "" {
		cfg.WatchPath = strings.TrimSpace(file.WatchPath)
		cfg.Sources["path"] = sourceFile
	}
	if file.Server.Address != "" {
		cfg.Address = file.Server.Address
		cfg.Sources["address"] = sourceFile
	}
	if file.Server.Port != 0 {
		cfg.Port = file.Server.Port
		cfg.Sources["port"] = sourceFile
	}
	if len(file.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = file.Server.AllowedOrigins
		cfg.Sources["allowed-origins"] = sourceFile
	}
	if file.Server.StaticDir != "" {
		cfg.StaticDir = file.Server.StaticDir
		cfg.Sources["static-dir"] = sourceFile
	}
	if file.Watch.PollInterval != 0 {
		cfg.PollInterval = file.Watch.PollInterval
		cfg.Sources["poll-interval"] = sourceFile
	}
	if file.Watch.EventBuffer != 0 {
		cfg.EventBuffer = file.Watch.EventBuffer
		cfg.Sources["event-buffer"] = sourceFile
	}
	if file.Watch.WriteTimeout != 0 {
		cfg.WriteTimeout = file.Watch.WriteTimeout
		cfg.Sources["write-timeout"] = sourceFile
	}
	if file.Watch.PingInterval != 0 {
		cfg.PingInterval = file.Watch.PingInterval
		cfg.Sources["ping-interval"] = sourceFile
	}
	if file.Render.Sanitize != nil {
		cfg.Sanitize = *file.Render.Sanitize
		cfg.Sources["sanitize"] = sourceFile
	}
	if level, ok := logging.ParseLevel(file.LogLevel); ok && file.LogLevel != "" {
		cfg.LogLevel = level
		cfg.Sources["log-level"] = sourceFile
	}
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.WatchPath) == "" {
		return errors.New("invalid watch path: value cannot be empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.Port)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %s: must be > 0", cfg.PollInterval)
	}
	if cfg.EventBuffer <= 0 {
		return fmt.Errorf("invalid event buffer %d: must be > 0", cfg.EventBuffer)
	}
	return nil
}

func parseFlags(args []string) (flagValues, error) {
	defaults := defaultConfig()
	fs := flag.NewFlagSet("watchfile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", defaults.ConfigPath, "Path to config.yaml")
	watchPath := fs.String("path", defaults.WatchPath, "Markdown file to preview")
	address := fs.String("address", defaults.Address, "Listen address")
	port := fs.Int("port", defaults.Port, "Listen port")
	staticDir := fs.String("static-dir", "", "Serve preview assets from this directory")
	pollInterval := fs.Duration("poll-interval", defaults.PollInterval, "How often the file is polled")
	sanitize := fs.Bool("sanitize", false, "Strip unsafe HTML from rendered output")
	logLevel := fs.String("log-level", string(defaults.LogLevel), "Log level (debug, info, warning, error)")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	quiet := fs.Bool("quiet", false, "Reduce logging to warnings")
	showVersion := fs.Bool("version", false, "Print version and exit")
	help := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return flagValues{}, err
	}
	if *help {
		fs.SetOutput(os.Stdout)
		fmt.Fprintln(os.Stdout, "Usage: watchfile [flags] [path]")
		fs.PrintDefaults()
		return flagValues{}, flag.ErrHelp
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	flags := flagValues{
		ConfigPath:   *configPath,
		WatchPath:    *watchPath,
		Address:      *address,
		Port:         *port,
		StaticDir:    *staticDir,
		PollInterval: *pollInterval,
		Sanitize:     *sanitize,
		LogLevel:     *logLevel,
		Verbose:      *verbose,
		Quiet:        *quiet,
		Version:      *showVersion,
		Set:          set,
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		if set["path"] {
			return flagValues{}, errors.New("watch path given both as --path and as an argument")
		}
		flags.WatchPath = rest[0]
		flags.Set["path"] = true
	default:
		return flagValues{}, fmt.Errorf("unexpected arguments: %s", strings.Join(rest[1:], " "))
	}
	return flags, nil
}
