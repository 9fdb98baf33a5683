package gfx

import (
	"github.com/BurntSushi/toml"
)

// Config is the driver configuration decoded from TOML. The board
// section stands in for the DIP switches and test-menu settings a real
// cabinet would supply.
type Config struct {
	Video VideoConfig `toml:"video"`
	Board BoardConfig `toml:"board"`
}

type VideoConfig struct {
	Depth  int   `toml:"depth"` // bytes per pixel, 2 or 4
	Dither *bool `toml:"dither"`
}

// BoardConfig implements Settings.
type BoardConfig struct {
	LowRes   bool `toml:"low_res"`  // DIP 1: 15 kHz monitor
	Vertical bool `toml:"vertical"` // cabinet monitor rotated
}

func (b BoardConfig) LowResolution() bool  { return b.LowRes }
func (b BoardConfig) VerticalScreen() bool { return b.Vertical }

// DefaultConfig is a 31 kHz horizontal cabinet at 16-bit depth.
func DefaultConfig() Config {
	return Config{
		Video: VideoConfig{Depth: Depth1555},
	}
}

// LoadConfigOrDefault decodes the configuration at path, or returns
// the default one when the file cannot be read.
func LoadConfigOrDefault(path string) Config {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DefaultConfig()
	}
	if cfg.Video.Depth == 0 {
		cfg.Video.Depth = Depth1555
	}
	return cfg
}

// Apply sets the pre-initialization options the config carries.
func (c Config) Apply(d *Driver) {
	if c.Video.Dither != nil {
		d.SetDither(*c.Video.Dither)
	}
}
