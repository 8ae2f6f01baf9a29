// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and an
// optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the panel.
type Options struct {
	// ServerURL is the base URL of the competition admin API.
	ServerURL string

	// SessionFile is the path of the saved API-key file. Empty means the
	// platform default under the user cache directory.
	SessionFile string

	// PollIntervalSec is the status poll period in seconds.
	PollIntervalSec int

	// LogLevel is the zap level name ("Debug", "Info", ...).
	LogLevel string

	// Config is the path to the config file.
	Config string

	// ShowVersion prints build metadata and exits.
	ShowVersion bool
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.ServerURL, "s", "http://localhost:8080", "competition server base URL")
	flag.StringVar(&options.SessionFile, "session", "", "path to the saved session file")
	flag.IntVar(&options.PollIntervalSec, "poll", 30, "status poll interval in seconds")
	flag.StringVar(&options.LogLevel, "l", "Info", "log level")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
	flag.BoolVar(&options.ShowVersion, "version", false, "show build version and date")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Load .env before reading environment overrides.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverURL := os.Getenv("SERVER_URL"); serverURL != "" {
		options.ServerURL = serverURL
	}
	if sessionFile := os.Getenv("SESSION_FILE"); sessionFile != "" {
		options.SessionFile = sessionFile
	}
	if poll := os.Getenv("POLL_INTERVAL"); poll != "" {
		if sec, err := strconv.Atoi(poll); err == nil && sec > 0 {
			options.PollIntervalSec = sec
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	return options
}
