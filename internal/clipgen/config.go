package clipgen

import (
	"errors"
	"fmt"
)

// Motion patterns the generator can render.
const (
	PatternStatic    = "static"
	PatternDrift     = "drift"
	PatternOscillate = "oscillate"
)

// Config holds all settings for a clipgen run.
type Config struct {
	// Generation settings
	Out     string
	Pattern string
	Seconds int
	FPS     float64
	Width   int
	Height  int

	// Extraction settings; Extract empty means generate instead.
	Extract     string
	CascadePath string
	ModelPath   string
	MaxSamples  int

	Verbose bool
}

// Validate rejects configurations a run cannot work with.
func (c *Config) Validate() error {
	if c.Extract != "" {
		if c.CascadePath == "" {
			return errors.New("-cascade is required with -extract")
		}
		return nil
	}

	switch c.Pattern {
	case PatternStatic, PatternDrift, PatternOscillate:
	default:
		return fmt.Errorf("unknown pattern %q", c.Pattern)
	}
	if c.Out == "" {
		return errors.New("missing -out")
	}
	if c.Seconds <= 0 || c.FPS <= 0 {
		return errors.New("-seconds and -fps must be positive")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.New("-width and -height must be positive")
	}
	return nil
}
