package camera

import (
	"fmt"
	"sort"

	"github.com/teslashibe/go-agecam/pkg/config"
)

// Preset names for common capture sizes
const (
	PresetQVGA  = "qvga"
	PresetVGA   = "vga"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

// Preset is a capture geometry.
type Preset struct {
	Width     int
	Height    int
	Framerate int
}

// Presets returns all available presets.
func Presets() map[string]Preset {
	return map[string]Preset{
		// Cheap CPUs and Myriad sticks
		PresetQVGA: {Width: 320, Height: 240, Framerate: 30},
		// Default
		PresetVGA:   {Width: 640, Height: 480, Framerate: 30},
		Preset720p:  {Width: 1280, Height: 720, Framerate: 30},
		Preset1080p: {Width: 1920, Height: 1080, Framerate: 15},
	}
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	presets := Presets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overwrites the geometry in cfg with the named preset.
func ApplyPreset(cfg *config.Camera, name string) error {
	p, ok := Presets()[name]
	if !ok {
		return fmt.Errorf("unknown camera preset %q (have %v)", name, PresetNames())
	}
	cfg.Width = p.Width
	cfg.Height = p.Height
	cfg.Framerate = p.Framerate
	return nil
}
