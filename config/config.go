/*
NAME
  config.go

DESCRIPTION
  config.go contains the configuration settings for the error concealment
  engine and the conceal loss simulation tool.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for error concealment.
package config

import (
	"github.com/ausocean/utils/logging"
)

// Motion vector layouts.
const (
	LayoutH264    = "h264"
	LayoutGeneric = "generic"
)

// Config provides parameters relevant to an error concealment context and to
// the conceal tool. A Config is passed by value to the constructors that need
// it. Default values for these fields are defined in variables.go.
type Config struct {
	// Logger holds an implementation of the Logger interface.
	// This must be set for concealment to work correctly.
	Logger logging.Logger

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	// Conceal is the master switch for error concealment. If false, none of
	// the frame operations have any effect.
	Conceal bool

	// GuessMVs enables iterative motion vector guessing. If false, damaged inter
	// macroblocks are given zero motion vectors.
	GuessMVs bool

	Deblock    bool // Deblock enables smoothing of damaged block boundaries.
	FavorInter bool // FavorInter always treats macroblocks of unknown type as inter.

	// Explode enables aggressive detection of entirely missing slices. A
	// macroblock run that ended cleanly but is followed by an untouched slice
	// is marked as damaged.
	Explode bool

	DebugER bool // DebugER dumps the damage map of every concealed frame.

	// SkipTop and SkipBottom are the number of macroblock rows the decoder has
	// been told to skip at the top and bottom of the picture. Damage confined
	// to these rows is not concealed.
	SkipTop    uint
	SkipBottom uint

	// InputPath and OutputPath define the raw I420 source and concealed
	// destination files used by the conceal tool.
	InputPath  string
	OutputPath string

	Width  uint // Width of the source video in pixels, must be a multiple of 16.
	Height uint // Height of the source video in pixels, must be a multiple of 16.

	GOPLength uint // Number of frames between I pictures.
	SliceRows uint // Number of macroblock rows carried by one slice.

	// LossRate is the probability that a slice is lost entirely and
	// CorruptRate the probability that a received slice is corrupted part way
	// through. Both must lie in [0, 1].
	LossRate    float64
	CorruptRate float64

	Seed        int64 // Seed for the loss model's pseudo random source.
	SearchRange uint  // Motion search range in pixels.

	// Layout selects the motion vector storage layout, one of LayoutH264 or
	// LayoutGeneric.
	Layout string

	PlotPath string // If set, a PSNR plot is written here as PNG.
	LogPath  string // Log file location.
}

// Default returns a Config with the engine defaults applied, i.e. concealment
// with motion vector guessing and deblocking enabled.
func Default(l logging.Logger) Config {
	c := Config{
		Logger:   l,
		Conceal:  true,
		GuessMVs: true,
		Deblock:  true,
	}
	c.Validate()
	return c
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
