package rover

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "rover.yml"

// Link kinds.
const (
	LinkSim       = "sim"
	LinkWebSocket = "ws"
	LinkNone      = "none"
)

// Config holds the console configuration
type Config struct {
	Link     LinkConfig     `yaml:"link"`
	Tilt     TiltConfig     `yaml:"tilt,omitempty"`
	Display  DisplayConfig  `yaml:"display"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

// LinkConfig selects how the console talks to the rover
type LinkConfig struct {
	Kind       string        `yaml:"kind"`
	URL        string        `yaml:"url,omitempty"`
	SerialPort string        `yaml:"serial_port,omitempty"`
	SerialBaud int           `yaml:"serial_baud,omitempty"`
	SendEvery  time.Duration `yaml:"send_every,omitempty"`
}

// TiltConfig describes an optional feetech servo driving the camera tilt
type TiltConfig struct {
	Port     string `yaml:"port,omitempty"`
	ID       int    `yaml:"id,omitempty"`
	RangeMin int    `yaml:"range_min,omitempty"`
	RangeMax int    `yaml:"range_max,omitempty"`
}

// Enabled returns true if a tilt servo is configured
func (t *TiltConfig) Enabled() bool {
	return t.Port != "" && t.ID > 0 && t.RangeMax > t.RangeMin
}

// DisplayConfig controls rendering
type DisplayConfig struct {
	FPS int `yaml:"fps"`
	// KeyRelease is how long a key counts as held after its last press or
	// auto-repeat. Terminals report no key-up events. It must exceed the
	// initial auto-repeat delay (660 ms on X11) or held drive keys stutter.
	KeyRelease time.Duration `yaml:"key_release"`
}

// DefaultKeyRelease is the key release timeout used when none is configured.
const DefaultKeyRelease = 700 * time.Millisecond

// SnapshotConfig controls where camera snapshots go
type SnapshotConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// ExportConfig controls where weight exports go
type ExportConfig struct {
	Database string `yaml:"database"`
}

// LogConfig controls the log file
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Defaults returns a configuration with every field set.
func Defaults() *Config {
	return &Config{
		Link:     LinkConfig{Kind: LinkSim, SerialBaud: 115200, SendEvery: 50 * time.Millisecond},
		Display:  DisplayConfig{FPS: 48, KeyRelease: DefaultKeyRelease},
		Snapshot: SnapshotConfig{Dir: ".", Extension: "jpg"},
		Export:   ExportConfig{Database: "rover_brain.db"},
		Log:      LogConfig{Level: "info", File: "rover.log"},
	}
}

// fill copies defaults into zero-valued fields
func (c *Config) fill() {
	d := Defaults()
	if c.Link.Kind == "" {
		c.Link.Kind = d.Link.Kind
	}
	if c.Link.SerialBaud == 0 {
		c.Link.SerialBaud = d.Link.SerialBaud
	}
	if c.Link.SendEvery <= 0 {
		c.Link.SendEvery = d.Link.SendEvery
	}
	if c.Display.FPS <= 0 {
		c.Display.FPS = d.Display.FPS
	}
	if c.Display.KeyRelease <= 0 {
		c.Display.KeyRelease = d.Display.KeyRelease
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = d.Snapshot.Dir
	}
	if c.Snapshot.Extension == "" {
		c.Snapshot.Extension = d.Snapshot.Extension
	}
	if c.Export.Database == "" {
		c.Export.Database = d.Export.Database
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.fill()
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
