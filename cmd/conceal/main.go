/*
DESCRIPTION
  conceal runs raw video through a simulated lossy channel and H.264 style
  error concealment, writing the concealed video and reporting its quality.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package conceal is a command for evaluating error concealment on raw
// I420 video.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/avconceal/codec/yuv"
	"github.com/ausocean/avconceal/config"
	"github.com/ausocean/utils/logging"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = true
)

// flagKeys maps command line flags to the configuration variables they set.
var flagKeys = map[string]string{
	"in":      config.KeyInputPath,
	"out":     config.KeyOutputPath,
	"width":   config.KeyWidth,
	"height":  config.KeyHeight,
	"loss":    config.KeyLossRate,
	"corrupt": config.KeyCorruptRate,
	"seed":    config.KeySeed,
	"plot":    config.KeyPlotPath,
	"log":     config.KeyLogPath,
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version")
		configPath  = flag.String("config", "", "key=value configuration file, reloaded when changed")
	)
	flag.String("in", "", "input I420 video")
	flag.String("out", "", "output I420 video")
	flag.Uint("width", 352, "frame width in pixels")
	flag.Uint("height", 288, "frame height in pixels")
	flag.Float64("loss", 0, "probability that a slice is lost")
	flag.Float64("corrupt", 0, "probability that a slice is corrupted part way through")
	flag.Int64("seed", 0, "loss model seed")
	flag.String("plot", "", "PSNR plot output, PNG or SVG by extension")
	flag.String("log", "conceal.log", "log file")
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Configuration is loaded with a stderr logger, since it names the log
	// file.
	cfg, err := loadConfig(logging.New(logging.Info, os.Stderr, logSuppress), *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load config:", err)
		os.Exit(1)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := newFileLog(cfg.LogPath)
	log := logging.New(cfg.LogLevel, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	cfg.Logger = log
	log.Info("starting conceal", "version", version, "log", cfg.LogPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, cfg, *configPath)
	if err != nil {
		log.Fatal("conceal failed", "error", err.Error())
	}
	fileLog.Close()
}

// loadConfig returns the default configuration updated from the file at
// path, if given, and then from explicitly set flags.
func loadConfig(l logging.Logger, path string) (config.Config, error) {
	cfg := config.Default(l)
	if path != "" {
		vars, err := loadVars(path)
		if err != nil {
			return cfg, err
		}
		cfg.Update(vars)
	}

	vars := make(map[string]string)
	flag.Visit(func(f *flag.Flag) {
		if k, ok := flagKeys[f.Name]; ok {
			vars[k] = f.Value.String()
		}
	})
	cfg.Update(vars)
	cfg.Validate()
	return cfg, nil
}

func newFileLog(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
}

// run processes cfg.InputPath into cfg.OutputPath, reporting quality at the
// end. If configPath is set, changes to it are applied between frames.
func run(ctx context.Context, cfg config.Config, configPath string) error {
	if cfg.InputPath == "" || cfg.OutputPath == "" {
		return errors.New("input and output paths are required")
	}
	in, err := os.Open(cfg.InputPath)
	if err != nil {
		return errors.Wrap(err, "could not open input")
	}
	defer in.Close()
	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return errors.Wrap(err, "could not create output")
	}
	defer out.Close()

	s, err := newSimulator(cfg)
	if err != nil {
		return err
	}
	r, err := yuv.NewReader(in, int(cfg.Width), int(cfg.Height))
	if err != nil {
		return errors.Wrap(err, "could not create frame reader")
	}

	var changes <-chan map[string]string
	if configPath != "" {
		changes, err = watch(ctx, configPath, cfg.Logger)
		if err != nil {
			return err
		}
	}

	res, err := process(ctx, s, r, yuv.NewWriter(out), changes)
	if err != nil {
		return err
	}

	sum := summarise(res)
	cfg.Logger.Info("finished", "frames", sum.Frames, "concealed", sum.Concealed,
		"meanPSNR", sum.Mean, "stdDevPSNR", sum.StdDev, "minPSNR", sum.Min)
	if s.cfg.PlotPath != "" {
		return plotPSNR(res, s.cfg.PlotPath)
	}
	return nil
}

// process passes every frame of r through s to w until r is exhausted or ctx
// is done. Configuration received on changes takes effect from the next
// frame.
func process(ctx context.Context, s *simulator, r *yuv.Reader, w *yuv.Writer, changes <-chan map[string]string) ([]frameResult, error) {
	var res []frameResult
	for {
		select {
		case <-ctx.Done():
			s.log.Info("interrupted", "frames", len(res))
			return res, nil
		case vars := <-changes:
			cfg := s.cfg
			cfg.Update(vars)
			cfg.Validate()
			cfg.Logger.SetLevel(cfg.LogLevel)
			s.update(cfg)
		default:
		}

		src, err := r.Read()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		img, fr, err := s.frame(src)
		if err != nil {
			return res, err
		}
		err = w.Write(img)
		if err != nil {
			return res, errors.Wrap(err, "could not write frame")
		}
		res = append(res, fr)
	}
}
