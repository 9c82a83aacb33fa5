/*
DESCRIPTION
  sim.go provides a simulated decoder that damages slices of each frame
  according to a loss model and then conceals the damage.

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
	"image"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/ausocean/avconceal/codec/h264/h264er"
	"github.com/ausocean/avconceal/codec/mc"
	"github.com/ausocean/avconceal/codec/me"
	"github.com/ausocean/avconceal/codec/yuv"
	"github.com/ausocean/avconceal/config"
	"github.com/ausocean/utils/logging"
)

// garbageRange bounds the components of motion vectors written into
// damaged macroblocks.
const garbageRange = 64

// frameResult summarises the processing of one frame.
type frameResult struct {
	Index     int
	Type      h264er.PictureType
	Lost      int // Slices lost entirely.
	Corrupt   int // Slices corrupted part way through.
	Concealed bool
	PSNR      float64
}

// simulator stands in for a decoder. Received macroblocks reproduce the
// source exactly; lost and corrupted macroblocks are filled with garbage
// and reported to the concealment engine.
type simulator struct {
	cfg    config.Config
	log    logging.Logger
	g      h264er.Geometry
	layout h264er.Layout
	unit   int // Motion vector units per sample.
	rng    *rand.Rand
	mc     *mc.Renderer
	er     *h264er.Context

	last *h264er.Picture
	n    int
}

func newSimulator(cfg config.Config) (*simulator, error) {
	if cfg.Width%16 != 0 || cfg.Height%16 != 0 || cfg.Width == 0 || cfg.Height == 0 {
		return nil, errors.Errorf("dimensions %dx%d are not whole macroblocks", cfg.Width, cfg.Height)
	}
	s := &simulator{
		cfg:  cfg,
		log:  cfg.Logger,
		g:    h264er.NewGeometry(int(cfg.Width/16), int(cfg.Height/16)),
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		unit: 4,
	}
	s.layout = h264er.H264Layout{}
	if cfg.Layout == config.LayoutGeneric {
		s.layout = h264er.GenericLayout{}
		s.unit = 2
	}
	s.mc = mc.NewRenderer(nil, s.unit == 4, cfg.Logger)

	var err error
	s.er, err = h264er.New(cfg, s.g, s.mc, h264er.WithLayout(s.layout))
	if err != nil {
		return nil, errors.Wrap(err, "could not create concealment context")
	}
	return s, nil
}

// update applies a changed configuration from the next frame. Dimensions
// and layout are fixed for the life of the simulator.
func (s *simulator) update(cfg config.Config) {
	if cfg.Width != s.cfg.Width || cfg.Height != s.cfg.Height || cfg.Layout != s.cfg.Layout {
		s.log.Warning("dimension and layout changes need a restart, ignoring",
			"width", cfg.Width, "height", cfg.Height, "layout", cfg.Layout)
		cfg.Width, cfg.Height, cfg.Layout = s.cfg.Width, s.cfg.Height, s.cfg.Layout
	}
	if cfg.Seed != s.cfg.Seed {
		s.rng.Seed(cfg.Seed)
	}
	s.cfg = cfg
	s.er.Update(cfg)
	s.log.Info("configuration updated", "loss", cfg.LossRate, "corrupt", cfg.CorruptRate, "conceal", cfg.Conceal)
}

// frame decodes src through the loss model and returns the concealed
// picture.
func (s *simulator) frame(src *image.YCbCr) (*image.YCbCr, frameResult, error) {
	res := frameResult{Index: s.n, Type: h264er.PictureP}
	if src.Rect.Dx() != int(s.cfg.Width) || src.Rect.Dy() != int(s.cfg.Height) {
		return nil, res, errors.Errorf("frame %d is %dx%d, want %dx%d", s.n, src.Rect.Dx(), src.Rect.Dy(), s.cfg.Width, s.cfg.Height)
	}
	if s.last == nil || s.n%int(s.cfg.GOPLength) == 0 {
		res.Type = h264er.PictureI
	}

	cur := h264er.NewPicture(yuv.Clone(src), res.Type, s.g, s.layout)
	s.estimate(cur, src)

	s.mc.Refs[0] = nil
	if s.last != nil {
		s.mc.Refs[0] = []*image.YCbCr{s.last.Image}
	}
	s.er.FrameStart(h264er.Frame{Cur: cur, Last: s.last})

	rows := int(s.cfg.SliceRows)
	for y := 0; y < s.g.MBHeight; y += rows {
		start := y * s.g.MBWidth
		end := min(y+rows, s.g.MBHeight)*s.g.MBWidth - 1

		u := s.rng.Float64()
		switch {
		case u < s.cfg.LossRate:
			s.damage(cur, start, end)
			res.Lost++
		case u < s.cfg.LossRate+s.cfg.CorruptRate:
			errPos := start + s.rng.Intn(end-start+1)
			s.damage(cur, errPos, end)
			s.er.AddSlice(start, errPos, h264er.MBError)
			res.Corrupt++
		default:
			s.er.AddSlice(start, end, h264er.MBEnd)
		}
	}

	s.er.FrameEnd()
	res.Concealed = cur.ConcealmentActive

	psnr, err := yuv.PSNR(src, cur.Image)
	if err != nil {
		return nil, res, errors.Wrap(err, "could not measure frame")
	}
	res.PSNR = psnr

	s.log.Debug("frame done", "frame", res.Index, "type", res.Type.String(), "lost", res.Lost,
		"corrupt", res.Corrupt, "concealed", res.Concealed, "psnr", res.PSNR)
	if s.er.ErrorOccurred() {
		s.log.Debug("hard error reported", "frame", res.Index)
	}

	s.last = cur
	s.n++
	return cur.Image, res, nil
}

// estimate sets the macroblock types and, for P pictures, the motion
// vectors of cur relative to the previous picture.
func (s *simulator) estimate(cur *h264er.Picture, src *image.YCbCr) {
	var ref, plane me.Plane
	if cur.Type == h264er.PictureP {
		last := s.last.Image
		ref = me.Plane{Data: last.Y, Stride: last.YStride, Width: last.Rect.Dx(), Height: last.Rect.Dy()}
		plane = me.Plane{Data: src.Y, Stride: src.YStride, Width: src.Rect.Dx(), Height: src.Rect.Dy()}
	}
	for y := 0; y < s.g.MBHeight; y++ {
		for x := 0; x < s.g.MBWidth; x++ {
			xy := s.g.XY(x, y)
			if cur.Type == h264er.PictureI {
				cur.MBType[xy] = h264er.MBIntra16x16
				continue
			}
			cur.MBType[xy] = h264er.MB16x16 | h264er.MBL0
			dx, dy := me.FullSearch(plane, ref, x, y, int(s.cfg.SearchRange))
			s.layout.CommitMacroblock(cur.MotionVal[0], s.g, x, y, h264er.MV{X: dx * s.unit, Y: dy * s.unit})
		}
	}
}

// damage fills scan positions from to to, inclusive, of cur with garbage
// samples, types and motion vectors.
func (s *simulator) damage(cur *h264er.Picture, from, to int) {
	img := cur.Image
	for i := from; i <= to; i++ {
		x, y := i%s.g.MBWidth, i/s.g.MBWidth
		for j := 0; j < 16; j++ {
			off := (y*16+j)*img.YStride + x*16
			s.rng.Read(img.Y[off : off+16])
		}
		for j := 0; j < 8; j++ {
			off := (y*8+j)*img.CStride + x*8
			s.rng.Read(img.Cb[off : off+8])
			s.rng.Read(img.Cr[off : off+8])
		}
		cur.MBType[s.g.XY(x, y)] = 0
		mv := h264er.MV{
			X: s.rng.Intn(2*garbageRange+1) - garbageRange,
			Y: s.rng.Intn(2*garbageRange+1) - garbageRange,
		}
		s.layout.CommitMacroblock(cur.MotionVal[0], s.g, x, y, mv)
	}
}
