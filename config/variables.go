/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyConceal     = "Conceal"
	KeyCorruptRate = "CorruptRate"
	KeyDebugER     = "DebugER"
	KeyDeblock     = "Deblock"
	KeyExplode     = "Explode"
	KeyFavorInter  = "FavorInter"
	KeyGOPLength   = "GOPLength"
	KeyGuessMVs    = "GuessMVs"
	KeyHeight      = "Height"
	KeyInputPath   = "InputPath"
	KeyLayout      = "Layout"
	KeyLogging     = "logging"
	KeyLogPath     = "LogPath"
	KeyLossRate    = "LossRate"
	KeyOutputPath  = "OutputPath"
	KeyPlotPath    = "PlotPath"
	KeySearchRange = "SearchRange"
	KeySeed        = "Seed"
	KeySkipBottom  = "SkipBottom"
	KeySkipTop     = "SkipTop"
	KeySliceRows   = "SliceRows"
	KeyWidth       = "Width"
)

// Config map parameter types.
const (
	typeString = "string"
	typeInt    = "int"
	typeUint   = "uint"
	typeBool   = "bool"
	typeFloat  = "float"
)

// Default variable values.
const (
	defaultVerbosity   = logging.Info
	defaultWidth       = 352
	defaultHeight      = 288
	defaultGOPLength   = 12
	defaultSliceRows   = 1
	defaultLossRate    = 0
	defaultCorruptRate = 0
	defaultSearchRange = 8
	defaultLayout      = LayoutH264
	defaultLogPath     = "conceal.log"
)

// Variables describes the variables that can be used for concealment control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyConceal,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Conceal = parseBool(KeyConceal, v, c) },
	},
	{
		Name:   KeyCorruptRate,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.CorruptRate = parseFloat(KeyCorruptRate, v, c) },
		Validate: func(c *Config) {
			c.CorruptRate = probability(KeyCorruptRate, c.CorruptRate, c, defaultCorruptRate)
		},
	},
	{
		Name:   KeyDebugER,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.DebugER = parseBool(KeyDebugER, v, c) },
	},
	{
		Name:   KeyDeblock,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Deblock = parseBool(KeyDeblock, v, c) },
	},
	{
		Name:   KeyExplode,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Explode = parseBool(KeyExplode, v, c) },
	},
	{
		Name:   KeyFavorInter,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.FavorInter = parseBool(KeyFavorInter, v, c) },
	},
	{
		Name:   KeyGOPLength,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.GOPLength = parseUint(KeyGOPLength, v, c) },
		Validate: func(c *Config) {
			c.GOPLength = lessThanOrEqual(KeyGOPLength, c.GOPLength, 0, c, defaultGOPLength)
		},
	},
	{
		Name:   KeyGuessMVs,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.GuessMVs = parseBool(KeyGuessMVs, v, c) },
	},
	{
		Name:   KeyHeight,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Height = parseUint(KeyHeight, v, c) },
		Validate: func(c *Config) {
			c.Height = macroblockAligned(KeyHeight, c.Height, c, defaultHeight)
		},
	},
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
	},
	{
		Name:   KeyLayout,
		Type:   "enum:" + LayoutH264 + "," + LayoutGeneric,
		Update: func(c *Config, v string) { c.Layout = strings.ToLower(v) },
		Validate: func(c *Config) {
			switch c.Layout {
			case LayoutH264, LayoutGeneric:
			default:
				c.LogInvalidField(KeyLayout, defaultLayout)
				c.Layout = defaultLayout
			}
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField(KeyLogging, defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyLogPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.LogPath = v },
		Validate: func(c *Config) {
			if c.LogPath == "" {
				c.LogInvalidField(KeyLogPath, defaultLogPath)
				c.LogPath = defaultLogPath
			}
		},
	},
	{
		Name:   KeyLossRate,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.LossRate = parseFloat(KeyLossRate, v, c) },
		Validate: func(c *Config) {
			c.LossRate = probability(KeyLossRate, c.LossRate, c, defaultLossRate)
		},
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
	},
	{
		Name:   KeyPlotPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.PlotPath = v },
	},
	{
		Name:   KeySearchRange,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.SearchRange = parseUint(KeySearchRange, v, c) },
		Validate: func(c *Config) {
			c.SearchRange = lessThanOrEqual(KeySearchRange, c.SearchRange, 0, c, defaultSearchRange)
		},
	},
	{
		Name: KeySeed,
		Type: typeInt,
		Update: func(c *Config, v string) {
			_v, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				c.Logger.Warning(fmt.Sprintf("expected integer for param %s", KeySeed), "value", v)
			}
			c.Seed = _v
		},
	},
	{
		Name:   KeySkipBottom,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.SkipBottom = parseUint(KeySkipBottom, v, c) },
	},
	{
		Name:   KeySkipTop,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.SkipTop = parseUint(KeySkipTop, v, c) },
	},
	{
		Name:   KeySliceRows,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.SliceRows = parseUint(KeySliceRows, v, c) },
		Validate: func(c *Config) {
			c.SliceRows = lessThanOrEqual(KeySliceRows, c.SliceRows, 0, c, defaultSliceRows)
		},
	},
	{
		Name:   KeyWidth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Width = parseUint(KeyWidth, v, c) },
		Validate: func(c *Config) {
			c.Width = macroblockAligned(KeyWidth, c.Width, c, defaultWidth)
		},
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseFloat(n, v string, c *Config) float64 {
	_v, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected float for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}

func macroblockAligned(n string, v uint, c *Config, def uint) uint {
	if v == 0 || v%16 != 0 {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}

func probability(n string, v float64, c *Config, def float64) float64 {
	if v < 0 || v > 1 {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}
