package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/nordlyslabs/camviewer/internal/session"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliConfig holds user-supplied flag values prior to translation into
// client.Config, so main.go can validate and map.
type cliConfig struct {
	host     string
	port     uint
	password string
	tier     string
	logLevel string

	profilePath string
	debugAddr   string

	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("camviewer-client", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.host, "host", "127.0.0.1", "Primary device host to connect to")
	fs.UintVar(&cfg.port, "port", 9443, "Primary device port")
	fs.StringVar(&cfg.password, "password", "", "Shared pairing password")
	fs.StringVar(&cfg.tier, "tier", "default", "Start profile tier: default|high|low")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.profilePath, "profile-store", "", "Path to a start-profile override file (empty disables persistence)")
	fs.StringVar(&cfg.debugAddr, "debug-addr", "", "Optional debug HTTP listen address (empty disables it)")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.showVersion {
		return cfg, nil
	}

	if cfg.host == "" {
		return nil, errors.New("host must not be empty")
	}
	if cfg.port == 0 || cfg.port > 65535 {
		return nil, errors.New("port must be between 1 and 65535")
	}
	if cfg.password == "" {
		return nil, errors.New("password must not be empty")
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	if _, err := cfg.deviceTier(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *cliConfig) deviceTier() (session.DeviceTier, error) {
	switch c.tier {
	case "default", "":
		return session.TierDefault, nil
	case "high":
		return session.TierHigh, nil
	case "low":
		return session.TierLow, nil
	default:
		return 0, fmt.Errorf("invalid tier %q, must be default|high|low", c.tier)
	}
}
