/*
DESCRIPTION
  mc_test.go provides testing for the motion compensated macroblock renderer.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mc

import (
	"image"
	"testing"

	"github.com/ausocean/avconceal/codec/h264/h264er"
	"github.com/ausocean/avconceal/config"
	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
)

func newImage(w, h int, f func(x, y int) byte) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Y[y*img.YStride+x] = f(x, y)
		}
	}
	for y := 0; y < h/2; y++ {
		for x := 0; x < w/2; x++ {
			img.Cb[y*img.CStride+x] = f(2*x, 2*y)
			img.Cr[y*img.CStride+x] = f(2*x, 2*y) / 2
		}
	}
	return img
}

func prediction(x, y int, dir h264er.Direction, mv h264er.MV) h264er.Prediction {
	p := h264er.Prediction{X: x, Y: y, Dir: dir, Type: h264er.MV16x16}
	p.MV[0][0] = mv
	p.MV[1][0] = mv
	return p
}

func TestDecodeMBIntegerVector(t *testing.T) {
	ref := newImage(64, 64, func(x, y int) byte { return byte(x*7 + y*13) })
	dst := image.NewYCbCr(ref.Rect, ref.SubsampleRatio)
	r := NewRenderer(ref, true, (*logging.TestLogger)(t))

	// 8 quarter samples right, 4 down.
	if !r.DecodeMB(dst, prediction(1, 1, h264er.DirForward, h264er.MV{X: 8, Y: 4})) {
		t.Fatalf("expected macroblock to be rendered")
	}

	for j := 0; j < 16; j++ {
		for i := 0; i < 16; i++ {
			got := dst.Y[(16+j)*dst.YStride+16+i]
			want := ref.Y[(17+j)*ref.YStride+18+i]
			if got != want {
				t.Fatalf("unexpected luma at (%d, %d)\nGot: %d\nWant: %d", i, j, got, want)
			}
		}
	}
	// Chroma moves by half as much, i.e. 1 sample right and half a sample
	// down.
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			a := int(ref.Cb[(8+j)*ref.CStride+9+i])
			b := int(ref.Cb[(9+j)*ref.CStride+9+i])
			want := byte((a*8*4 + b*8*4 + 32) >> 6)
			if got := dst.Cb[(8+j)*dst.CStride+8+i]; got != want {
				t.Fatalf("unexpected chroma at (%d, %d)\nGot: %d\nWant: %d", i, j, got, want)
			}
		}
	}
	// Other macroblocks are untouched.
	if dst.Y[0] != 0 || dst.Y[15*dst.YStride+15] != 0 {
		t.Errorf("samples outside the macroblock were written")
	}
}

func TestDecodeMBHalfSample(t *testing.T) {
	ref := newImage(32, 32, func(x, y int) byte { return byte(2 * x) })
	dst := image.NewYCbCr(ref.Rect, ref.SubsampleRatio)

	tests := []struct {
		name    string
		quarter bool
		mv      h264er.MV
	}{
		{name: "quarter units", quarter: true, mv: h264er.MV{X: 2}},
		{name: "half units", quarter: false, mv: h264er.MV{X: 1}},
	}

	for _, test := range tests {
		r := NewRenderer(ref, test.quarter, (*logging.TestLogger)(t))
		r.DecodeMB(dst, prediction(0, 0, h264er.DirForward, test.mv))
		for x := 0; x < 15; x++ {
			want := byte(2*x + 1)
			if got := dst.Y[x]; got != want {
				t.Errorf("%s: unexpected sample at %d\nGot: %d\nWant: %d", test.name, x, got, want)
			}
		}
	}
}

func TestDecodeMBClampsToEdge(t *testing.T) {
	ref := newImage(32, 32, func(x, y int) byte { return byte(x + 3*y + 1) })
	dst := image.NewYCbCr(ref.Rect, ref.SubsampleRatio)
	r := NewRenderer(ref, true, (*logging.TestLogger)(t))

	r.DecodeMB(dst, prediction(0, 0, h264er.DirForward, h264er.MV{X: -256, Y: -256}))

	for j := 0; j < 16; j++ {
		for i := 0; i < 16; i++ {
			if got := dst.Y[j*dst.YStride+i]; got != ref.Y[0] {
				t.Fatalf("unexpected sample at (%d, %d)\nGot: %d\nWant: %d", i, j, got, ref.Y[0])
			}
		}
	}
}

func TestDecodeMBBidirectional(t *testing.T) {
	fwd := newImage(16, 16, func(x, y int) byte { return 100 })
	bwd := newImage(16, 16, func(x, y int) byte { return 201 })
	dst := image.NewYCbCr(fwd.Rect, fwd.SubsampleRatio)

	r := &Renderer{Quarter: true, Log: (*logging.TestLogger)(t)}
	r.Refs[0] = []*image.YCbCr{fwd}
	r.Refs[1] = []*image.YCbCr{bwd}

	r.DecodeMB(dst, prediction(0, 0, h264er.DirForward|h264er.DirBackward, h264er.MV{}))

	want := make([]byte, len(dst.Y))
	for i := range want {
		want[i] = 151
	}
	if !cmp.Equal(dst.Y, want) {
		t.Errorf("unexpected luma\nGot: %v\nWant: %v", dst.Y, want)
	}
	if dst.Cb[0] != 151 || dst.Cr[0] != 75 {
		t.Errorf("unexpected chroma\nGot: %d, %d\nWant: 151, 75", dst.Cb[0], dst.Cr[0])
	}
}

func TestDecodeMB8x8(t *testing.T) {
	ref := newImage(48, 48, func(x, y int) byte { return byte(x + 4*y) })
	dst := image.NewYCbCr(ref.Rect, ref.SubsampleRatio)
	r := NewRenderer(ref, true, (*logging.TestLogger)(t))

	p := h264er.Prediction{X: 1, Y: 1, Dir: h264er.DirForward, Type: h264er.MV8x8}
	shifts := [4][2]int{{0, 0}, {4, 0}, {0, 4}, {-4, -4}}
	for n, s := range shifts {
		p.MV[0][n] = h264er.MV{X: s[0] * 4, Y: s[1] * 4}
	}
	r.DecodeMB(dst, p)

	for n, s := range shifts {
		x := 16 + (n&1)*8
		y := 16 + (n>>1)*8
		got := dst.Y[y*dst.YStride+x]
		want := ref.Y[(y+s[1])*ref.YStride+x+s[0]]
		if got != want {
			t.Errorf("unexpected sample in block %d\nGot: %d\nWant: %d", n, got, want)
		}
	}
}

func TestDecodeMBMissingReference(t *testing.T) {
	ref := newImage(16, 16, func(x, y int) byte { return 50 })
	dst := newImage(16, 16, func(x, y int) byte { return 7 })
	want := newImage(16, 16, func(x, y int) byte { return 7 })
	r := NewRenderer(ref, true, (*logging.TestLogger)(t))

	p := prediction(0, 0, h264er.DirForward, h264er.MV{})
	p.Ref = 3
	if r.DecodeMB(dst, p) {
		t.Errorf("expected failure for reference index outside list")
	}
	if r.DecodeMB(dst, prediction(0, 0, h264er.DirBackward, h264er.MV{})) {
		t.Errorf("expected failure for empty list")
	}

	if !cmp.Equal(dst, want) {
		t.Errorf("destination modified without a usable reference")
	}
}

// A damaged picture whose undamaged neighbours use a reference the renderer
// does not hold must still be concealed from the references it does hold.
func TestConcealWithUnknownReference(t *testing.T) {
	const mbw, mbh = 4, 4
	g := h264er.NewGeometry(mbw, mbh)
	layout := h264er.H264Layout{}

	last := h264er.NewPicture(newImage(mbw*16, mbh*16, func(x, y int) byte { return 100 }), h264er.PictureP, g, layout)
	cur := h264er.NewPicture(newImage(mbw*16, mbh*16, func(x, y int) byte {
		if y < 16 {
			return 100
		}
		return 250
	}), h264er.PictureP, g, layout)
	for _, p := range []*h264er.Picture{last, cur} {
		for i := range p.MBType {
			p.MBType[i] = h264er.MB16x16 | h264er.MBL0
		}
		for i := range p.RefIndex[0] {
			p.RefIndex[0][i] = 1
		}
	}

	cfg := config.Config{Logger: (*logging.TestLogger)(t), Conceal: true, GuessMVs: true, Deblock: true}
	c, err := h264er.New(cfg, g, NewRenderer(last.Image, true, cfg.Logger))
	if err != nil {
		t.Fatalf("could not create context: %v", err)
	}
	c.FrameStart(h264er.Frame{Cur: cur, Last: last})
	c.AddSlice(0, mbw-1, h264er.MBEnd)
	c.AddSlice(mbw, mbw*mbh-1, h264er.MBError)
	c.FrameEnd()

	img := cur.Image
	for y := 1; y < mbh; y++ {
		for x := 0; x < mbw; x++ {
			xy := g.XY(x, y)
			if ref := cur.RefIndex[0][4*xy]; ref != 0 {
				t.Errorf("unexpected reference at (%d, %d)\nGot: %d\nWant: 0", x, y, ref)
			}
			for j := 0; j < 16; j++ {
				for i := 0; i < 16; i++ {
					if v := img.Y[(y*16+j)*img.YStride+x*16+i]; v != 100 {
						t.Fatalf("macroblock (%d, %d) not concealed, sample (%d, %d) is %d", x, y, i, j, v)
					}
				}
			}
		}
	}
}
