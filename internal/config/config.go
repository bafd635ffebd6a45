// Package config loads settings from flags, WIIREMOTE_* environment
// variables and an optional wiiremote.yaml file.
package config

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/soar/wiiremote/internal/wiimote"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "WIIREMOTE"
	configName     = "wiiremote"
	minSSEInterval = 500 * time.Millisecond
)

// Remote configures one remote to dispatch for.
type Remote struct {
	ID          int
	Orientation wiimote.Orientation
}

// Config is the resolved application configuration.
type Config struct {
	Addr            string
	Debug           bool
	PollInterval    time.Duration
	SSEInterval     time.Duration
	Slides          int
	FrontendDir     string
	Minify          bool
	Gamepad         bool
	BrowsingChannel int
	Tray            bool
	Remotes         []Remote
	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string
}

type remoteEntry struct {
	ID          int    `mapstructure:"id"`
	Orientation string `mapstructure:"orientation"`
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("wiiremote", pflag.ContinueOnError)
	fs.String("addr", ":8080", "HTTP listen address")
	fs.Bool("debug", false, "log requests and show dispatch errors in the browser")
	fs.Duration("poll-interval", wiimote.PollInterval, "remote polling period (minimum 100ms)")
	fs.Duration("sse-interval", 5*time.Second, "maximum time between /events frames (minimum 500ms)")
	fs.Int("slides", 1, "number of slides until the page reports its own count")
	fs.String("frontend-dir", "", "serve the frontend from this directory instead of the embedded copy")
	fs.Bool("minify", true, "minify HTML, CSS and JS before serving")
	fs.Bool("gamepad", false, "emulate remotes with connected gamepads")
	fs.Int("browsing-channel", -1, "channel the first gamepad reports as browsing (-1 for none)")
	fs.Bool("tray", runtime.GOOS == "windows", "show a system tray icon")
	fs.String("config", "", "config file path")
	return fs
}

var flagKeys = map[string]string{
	"addr":             "addr",
	"debug":            "debug",
	"poll-interval":    "poll_interval",
	"sse-interval":     "sse_interval",
	"slides":           "slides",
	"frontend-dir":     "frontend_dir",
	"minify":           "minify",
	"gamepad":          "gamepad.enabled",
	"browsing-channel": "gamepad.browsing_channel",
	"tray":             "tray",
}

// Load parses args (without the program name) and resolves the configuration.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}

	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errors.Wrapf(err, "bind flag %s", name)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		for _, path := range []string{".", "$HOME/.config/wiiremote"} {
			v.AddConfigPath(os.ExpandEnv(path))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	cfg := &Config{
		Addr:            v.GetString("addr"),
		Debug:           v.GetBool("debug"),
		PollInterval:    v.GetDuration("poll_interval"),
		SSEInterval:     v.GetDuration("sse_interval"),
		Slides:          v.GetInt("slides"),
		FrontendDir:     v.GetString("frontend_dir"),
		Minify:          v.GetBool("minify"),
		Gamepad:         v.GetBool("gamepad.enabled"),
		BrowsingChannel: v.GetInt("gamepad.browsing_channel"),
		Tray:            v.GetBool("tray"),
		ConfigFile:      v.ConfigFileUsed(),
	}
	if cfg.PollInterval < wiimote.PollInterval {
		cfg.PollInterval = wiimote.PollInterval
	}
	if cfg.SSEInterval < minSSEInterval {
		cfg.SSEInterval = minSSEInterval
	}
	if cfg.Slides < 1 {
		cfg.Slides = 1
	}
	if cfg.BrowsingChannel >= wiimote.MaxRemotes {
		return nil, errors.Errorf("browsing channel %d out of range", cfg.BrowsingChannel)
	}

	remotes, err := loadRemotes(v)
	if err != nil {
		return nil, err
	}
	cfg.Remotes = remotes
	return cfg, nil
}

func loadRemotes(v *viper.Viper) ([]Remote, error) {
	var entries []remoteEntry
	if err := v.UnmarshalKey("remotes", &entries); err != nil {
		return nil, errors.Wrap(err, "decode remotes")
	}
	if len(entries) == 0 {
		out := make([]Remote, wiimote.MaxRemotes)
		for i := range out {
			out[i] = Remote{ID: i + 1, Orientation: wiimote.Vertical}
		}
		return out, nil
	}

	seen := make(map[int]bool, len(entries))
	out := make([]Remote, 0, len(entries))
	for _, e := range entries {
		if e.ID < 1 || e.ID > wiimote.MaxRemotes {
			return nil, errors.Wrapf(wiimote.ErrInvalidRemote, "remote id %d", e.ID)
		}
		if seen[e.ID] {
			return nil, errors.Errorf("remote %d configured twice", e.ID)
		}
		seen[e.ID] = true

		o, err := wiimote.ParseOrientation(e.Orientation)
		if err != nil {
			return nil, errors.Wrapf(err, "remote %d", e.ID)
		}
		out = append(out, Remote{ID: e.ID, Orientation: o})
	}
	return out, nil
}
