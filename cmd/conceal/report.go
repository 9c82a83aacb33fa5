/*
DESCRIPTION
  report.go summarises and plots the per frame quality of a simulation.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxPSNR replaces the infinite PSNR of undamaged frames in summaries.
const maxPSNR = 100

// Plot dimensions.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 4 * vg.Inch
)

type summary struct {
	Frames    int
	Concealed int
	Mean      float64
	StdDev    float64
	Min       float64
}

func capped(psnr []float64) []float64 {
	c := make([]float64, len(psnr))
	for i, v := range psnr {
		c[i] = math.Min(v, maxPSNR)
	}
	return c
}

// summarise returns statistics of the PSNR of the given frames.
func summarise(res []frameResult) summary {
	s := summary{Frames: len(res)}
	if len(res) == 0 {
		return s
	}
	psnr := make([]float64, len(res))
	for i, r := range res {
		psnr[i] = r.PSNR
		if r.Concealed {
			s.Concealed++
		}
	}
	psnr = capped(psnr)
	s.Mean, s.StdDev = stat.MeanStdDev(psnr, nil)
	s.Min = floats.Min(psnr)
	if len(psnr) == 1 {
		s.StdDev = 0
	}
	return s
}

// plotPSNR writes a line plot of frame PSNR to path. The image format is
// taken from the file extension.
func plotPSNR(res []frameResult, path string) error {
	p := plot.New()
	p.Title.Text = "Concealed video quality"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "PSNR (dB)"

	pts := make(plotter.XYs, len(res))
	for i, r := range res {
		pts[i].X = float64(r.Index)
		pts[i].Y = math.Min(r.PSNR, maxPSNR)
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "could not create PSNR line")
	}
	p.Add(l)
	return errors.Wrap(p.Save(plotWidth, plotHeight, path), "could not save plot")
}
