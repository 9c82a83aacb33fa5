/*
DESCRIPTION
  mc.go provides a motion compensated macroblock renderer that can be used as
  the macroblock decoder of an error concealment context.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mc provides bilinear motion compensation of 4:2:0 macroblocks from
// lists of reference pictures.
package mc

import (
	"image"

	"github.com/ausocean/avconceal/codec/h264/h264er"
	"github.com/ausocean/utils/logging"
)

// Renderer renders predicted macroblocks. It implements h264er.Decoder.
type Renderer struct {
	// Refs holds the forward (0) and backward (1) reference lists, indexed
	// by reference index.
	Refs [2][]*image.YCbCr

	// Quarter selects quarter sample motion vectors, as stored by
	// h264er.H264Layout. Otherwise vectors are in half samples.
	Quarter bool

	// Log, if set, receives a debug message for predictions that cannot be
	// rendered.
	Log logging.Logger
}

var _ h264er.Decoder = (*Renderer)(nil)

// NewRenderer returns a Renderer predicting from a single previous picture.
func NewRenderer(last *image.YCbCr, quarter bool, l logging.Logger) *Renderer {
	r := &Renderer{Quarter: quarter, Log: l}
	if last != nil {
		r.Refs[0] = []*image.YCbCr{last}
	}
	return r
}

// block holds the predicted samples of one macroblock.
type block struct {
	y      [256]byte
	cb, cr [64]byte
	chroma bool
}

// DecodeMB renders the prediction p into dst. Lists whose reference is
// missing are ignored; if no list can be used dst is left untouched and
// DecodeMB returns false. Bi-predicted macroblocks average the two
// predictions.
func (r *Renderer) DecodeMB(dst *image.YCbCr, p h264er.Prediction) bool {
	var (
		preds [2]block
		n     int
	)
	for l, d := range [2]h264er.Direction{h264er.DirForward, h264er.DirBackward} {
		if p.Dir&d == 0 {
			continue
		}
		ref := r.ref(l, p.Ref)
		if ref == nil {
			r.debug("no reference for prediction", "list", l, "ref", p.Ref, "x", p.X, "y", p.Y)
			continue
		}
		r.predict(&preds[n], ref, p, l)
		n++
	}

	switch n {
	case 0:
		return false
	case 2:
		average(&preds[0], &preds[1])
	}
	store(dst, p.X, p.Y, &preds[0])
	return true
}

func (r *Renderer) ref(list, idx int) *image.YCbCr {
	refs := r.Refs[list]
	if idx < 0 || idx >= len(refs) {
		return nil
	}
	return refs[idx]
}

func (r *Renderer) debug(msg string, args ...interface{}) {
	if r.Log != nil {
		r.Log.Debug(msg, args...)
	}
}

// predict fills b from ref using the vectors of list l.
func (r *Renderer) predict(b *block, ref *image.YCbCr, p h264er.Prediction, l int) {
	shift := 1
	if r.Quarter {
		shift = 2
	}
	w, h := ref.Rect.Dx(), ref.Rect.Dy()
	b.chroma = len(ref.Cb) != 0 && len(ref.Cr) != 0
	cw, ch := (w+1)/2, (h+1)/2

	for n := 0; n < 4; n++ {
		mv := p.MV[l][0]
		if p.Type == h264er.MV8x8 {
			mv = p.MV[l][n]
		}
		bx, by := (n&1)*8, (n>>1)*8
		interp(b.y[by*16+bx:], 16, ref.Y, ref.YStride, w, h, p.X*16+bx, p.Y*16+by, 8, mv, shift)
		if !b.chroma {
			continue
		}
		cx, cy := bx/2, by/2
		interp(b.cb[cy*8+cx:], 8, ref.Cb, ref.CStride, cw, ch, p.X*8+cx, p.Y*8+cy, 4, mv, shift+1)
		interp(b.cr[cy*8+cx:], 8, ref.Cr, ref.CStride, cw, ch, p.X*8+cx, p.Y*8+cy, 4, mv, shift+1)
	}
}

// interp writes the size by size block at (x0, y0) of a w by h plane,
// displaced by mv in units of 1/(1<<shift) samples, to dst. Reference
// samples outside the plane are clamped to its edge.
func interp(dst []byte, dstStride int, src []byte, srcStride, w, h, x0, y0, size int, mv h264er.MV, shift int) {
	u := 1 << shift
	fx, fy := mv.X&(u-1), mv.Y&(u-1)
	ix, iy := x0+(mv.X>>shift), y0+(mv.Y>>shift)
	round := u * u / 2

	at := func(x, y int) int {
		return int(src[clamp(y, 0, h-1)*srcStride+clamp(x, 0, w-1)])
	}
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			x, y := ix+i, iy+j
			v := at(x, y)*(u-fx)*(u-fy) + at(x+1, y)*fx*(u-fy) +
				at(x, y+1)*(u-fx)*fy + at(x+1, y+1)*fx*fy
			dst[j*dstStride+i] = byte((v + round) >> (2 * shift))
		}
	}
}

func average(a, b *block) {
	for i := range a.y {
		a.y[i] = byte((int(a.y[i]) + int(b.y[i]) + 1) >> 1)
	}
	if !a.chroma || !b.chroma {
		a.chroma = false
		return
	}
	for i := range a.cb {
		a.cb[i] = byte((int(a.cb[i]) + int(b.cb[i]) + 1) >> 1)
		a.cr[i] = byte((int(a.cr[i]) + int(b.cr[i]) + 1) >> 1)
	}
}

// store copies b into macroblock (x, y) of dst.
func store(dst *image.YCbCr, x, y int, b *block) {
	for j := 0; j < 16; j++ {
		copy(dst.Y[(y*16+j)*dst.YStride+x*16:], b.y[j*16:j*16+16])
	}
	if !b.chroma || len(dst.Cb) == 0 {
		return
	}
	for j := 0; j < 8; j++ {
		off := (y*8+j)*dst.CStride + x*8
		copy(dst.Cb[off:off+8], b.cb[j*8:j*8+8])
		copy(dst.Cr[off:off+8], b.cr[j*8:j*8+8])
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
