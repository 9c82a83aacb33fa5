/*
DESCRIPTION
  deblock.go smooths block edges next to concealed macroblocks.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264er

func (c *Context) deblock() {
	g := c.g
	img := c.f.Cur.Image
	c.hBlockFilter(img.Y, g.MBWidth*2, g.MBHeight*2, img.YStride, true)
	c.vBlockFilter(img.Y, g.MBWidth*2, g.MBHeight*2, img.YStride, true)
	if c.f.Cur.monochrome() {
		return
	}
	c.hBlockFilter(img.Cb, g.MBWidth, g.MBHeight, img.CStride, false)
	c.hBlockFilter(img.Cr, g.MBWidth, g.MBHeight, img.CStride, false)
	c.vBlockFilter(img.Cb, g.MBWidth, g.MBHeight, img.CStride, false)
	c.vBlockFilter(img.Cr, g.MBWidth, g.MBHeight, img.CStride, false)
}

// edge holds what the block filters need to know about the blocks on either
// side of an edge.
type edge struct {
	damage [2]bool
	intra  [2]bool
	mv     [2]MV
}

// edgeAt describes the edge between 8x8 sample blocks (bx0, by0) and
// (bx1, by1) of a luma or chroma plane.
func (c *Context) edgeAt(bx0, by0, bx1, by1 int, luma bool) edge {
	g := c.g
	cur := c.f.Cur
	shift := 0
	if luma {
		shift = 1
	}
	mvx := c.layout.MVStep() >> shift
	mvy := c.layout.MVStride(g) * mvx

	var e edge
	for i, b := range [2][2]int{{bx0, by0}, {bx1, by1}} {
		xy := (b[0] >> shift) + (b[1]>>shift)*g.MBStride
		e.damage[i] = c.status[xy]&MBError != 0
		e.intra[i] = cur.MBType[xy].IsIntra()
		e.mv[i] = cur.MotionVal[0][mvy*b[1]+mvx*b[0]]
	}
	return e
}

// skip reports whether the edge needs no smoothing. The vertical vector
// components are compared by their sum.
func (e edge) skip() bool {
	if !e.damage[0] && !e.damage[1] {
		return true
	}
	return !e.intra[0] && !e.intra[1] &&
		absi(e.mv[0].X-e.mv[1].X)+absi(e.mv[0].Y+e.mv[1].Y) < 2
}

// hBlockFilter smooths the vertical edges between horizontally adjacent
// blocks.
func (c *Context) hBlockFilter(dst []byte, w, h, stride int, luma bool) {
	for by := 0; by < h; by++ {
		for bx := 0; bx < w-1; bx++ {
			e := c.edgeAt(bx, by, bx+1, by, luma)
			if e.skip() {
				continue
			}
			off := bx*8 + by*8*stride
			for y := 0; y < 8; y++ {
				smooth(dst, off+y*stride+7, 1, e.damage)
			}
		}
	}
}

// vBlockFilter smooths the horizontal edges between vertically adjacent
// blocks.
func (c *Context) vBlockFilter(dst []byte, w, h, stride int, luma bool) {
	for by := 0; by < h-1; by++ {
		for bx := 0; bx < w; bx++ {
			e := c.edgeAt(bx, by, bx, by+1, luma)
			if e.skip() {
				continue
			}
			off := bx*8 + by*8*stride
			for x := 0; x < 8; x++ {
				smooth(dst, off+x+7*stride, stride, e.damage)
			}
		}
	}
}

// smooth corrects the four samples on each damaged side of an edge. p is the
// last sample before the edge and step the distance between samples across
// it.
func smooth(dst []byte, p, step int, damage [2]bool) {
	at := func(k int) int { return int(dst[p+k*step]) }
	a := at(0) - at(-1)
	b := at(1) - at(0)
	cc := at(2) - at(1)

	d := maxi(absi(b)-((absi(a)+absi(cc)+1)>>1), 0)
	if b < 0 {
		d = -d
	}
	if d == 0 {
		return
	}
	if !(damage[0] && damage[1]) {
		d = d * 16 / 9
	}

	taps := [4]int{7, 5, 3, 1}
	if damage[0] {
		for k, t := range taps {
			i := p - k*step
			dst[i] = crop(int(dst[i]) + (d*t)>>4)
		}
	}
	if damage[1] {
		for k, t := range taps {
			i := p + (k+1)*step
			dst[i] = crop(int(dst[i]) - (d*t)>>4)
		}
	}
}
