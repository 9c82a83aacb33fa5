/*
DESCRIPTION
  dc.go reconstructs the DC values of damaged intra blocks by inverse distance
  interpolation from the nearest undamaged blocks, and renders flat DC only
  macroblocks.

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

import "math"

// DC interpolation constants.
const (
	neutralDC  = 1024
	noDistance = 9999
	dcWeight   = 256 * 256 * 256 * 16
	maxDC      = 2040
)

// Direction indices used by guessDC.
const (
	fromRight = iota
	fromLeft
	fromBelow
	fromAbove
)

// fillDC sets the DC grids from the samples of the current picture. Intra
// macroblocks of partitioned frames keep the DC values set by the decoder.
func (c *Context) fillDC() {
	g := c.g
	cur := c.f.Cur
	img := cur.Image
	mono := cur.monochrome()
	for y := 0; y < g.MBHeight; y++ {
		for x := 0; x < g.MBWidth; x++ {
			xy := g.XY(x, y)
			if cur.MBType[xy].IsIntra() && c.f.Partitioned {
				continue
			}

			for n := 0; n < 4; n++ {
				off := (y*16+(n>>1)*8)*img.YStride + x*16 + (n&1)*8
				c.dc[PlaneY][x*2+(n&1)+(y*2+(n>>1))*g.B8Stride] = int16((sum8x8(img.Y[off:], img.YStride) + 4) >> 3)
			}
			if mono {
				continue
			}
			off := y*8*img.CStride + x*8
			c.dc[PlaneCb][xy] = int16((sum8x8(img.Cb[off:], img.CStride) + 4) >> 3)
			c.dc[PlaneCr][xy] = int16((sum8x8(img.Cr[off:], img.CStride) + 4) >> 3)
		}
	}
}

func sum8x8(p []byte, stride int) int {
	var s int
	for y := 0; y < 8; y++ {
		for _, v := range p[y*stride : y*stride+8] {
			s += int(v)
		}
	}
	return s
}

// guessDC replaces the DC of every block of a damaged intra macroblock with
// the inverse distance weighted mean of the nearest usable block in each of
// the four directions. w and h are in blocks; luma grids hold four blocks per
// macroblock.
func (c *Context) guessDC(dc []int16, w, h, stride int, luma bool) {
	g := c.g
	cur := c.f.Cur
	shift := 0
	if luma {
		shift = 1
	}
	mbXY := func(bx, by int) int { return (bx >> shift) + (by>>shift)*g.MBStride }
	usable := func(bx, by int) bool {
		xy := mbXY(bx, by)
		return !cur.MBType[xy].IsIntra() || c.status[xy]&DCError == 0
	}

	col := make([][4]int, stride*h)
	dist := make([][4]int, stride*h)

	for by := 0; by < h; by++ {
		color, last := neutralDC, -1
		for bx := 0; bx < w; bx++ {
			i := bx + by*stride
			if usable(bx, by) {
				color, last = int(dc[i]), bx
			}
			col[i][fromLeft], dist[i][fromLeft] = color, distanceFrom(last, bx)
		}
		color, last = neutralDC, -1
		for bx := w - 1; bx >= 0; bx-- {
			i := bx + by*stride
			if usable(bx, by) {
				color, last = int(dc[i]), bx
			}
			col[i][fromRight], dist[i][fromRight] = color, distanceFrom(last, bx)
		}
	}
	for bx := 0; bx < w; bx++ {
		color, last := neutralDC, -1
		for by := 0; by < h; by++ {
			i := bx + by*stride
			if usable(bx, by) {
				color, last = int(dc[i]), by
			}
			col[i][fromAbove], dist[i][fromAbove] = color, distanceFrom(last, by)
		}
		color, last = neutralDC, -1
		for by := h - 1; by >= 0; by-- {
			i := bx + by*stride
			if usable(bx, by) {
				color, last = int(dc[i]), by
			}
			col[i][fromBelow], dist[i][fromBelow] = color, distanceFrom(last, by)
		}
	}

	for by := 0; by < h; by++ {
		for bx := 0; bx < w; bx++ {
			xy := mbXY(bx, by)
			if cur.MBType[xy].IsInter() || c.status[xy]&DCError == 0 {
				continue
			}
			i := bx + by*stride
			var guess, weightSum int64
			for j := 0; j < 4; j++ {
				weight := int64(dcWeight / maxi(dist[i][j], 1))
				guess += weight * int64(col[i][j])
				weightSum += weight
			}
			dc[i] = int16((guess + weightSum/2) / weightSum)
		}
	}
}

func distanceFrom(last, pos int) int {
	if last < 0 {
		return noDistance
	}
	return absi(pos - last)
}

// filter181 applies a [-1 8 -1]/6 filter horizontally and then vertically to
// the interior of a DC grid.
func filter181(data []int16, w, h, stride int) {
	const (
		lo = math.MinInt32 / 10923
		hi = math.MaxInt32/10923 - 32768
	)
	f := func(prev, v, next int) int16 {
		dc := -prev + v*8 - next
		return int16((clip(dc, lo, hi)*10923 + 32768) >> 16)
	}

	for y := 1; y < h-1; y++ {
		prev := int(data[y*stride])
		for x := 1; x < w-1; x++ {
			i := x + y*stride
			v := int(data[i])
			data[i] = f(prev, v, int(data[i+1]))
			prev = v
		}
	}
	for x := 1; x < w-1; x++ {
		prev := int(data[x])
		for y := 1; y < h-1; y++ {
			i := x + y*stride
			v := int(data[i])
			data[i] = f(prev, v, int(data[i+stride]))
			prev = v
		}
	}
}

// renderDCOnly replaces intra macroblocks with damaged AC by flat blocks of
// their DC values.
func (c *Context) renderDCOnly() {
	g := c.g
	cur := c.f.Cur
	for y := 0; y < g.MBHeight; y++ {
		for x := 0; x < g.MBWidth; x++ {
			xy := g.XY(x, y)
			if cur.MBType[xy].IsInter() || c.status[xy]&ACError == 0 {
				continue
			}
			c.putDC(x, y)
		}
	}
}

func (c *Context) putDC(x, y int) {
	g := c.g
	img := c.f.Cur.Image
	for n := 0; n < 4; n++ {
		v := dcSample(c.dc[PlaneY][x*2+(n&1)+(y*2+(n>>1))*g.B8Stride])
		off := (y*16+(n>>1)*8)*img.YStride + x*16 + (n&1)*8
		flat8x8(img.Y[off:], img.YStride, v)
	}
	if c.f.Cur.monochrome() {
		return
	}
	xy := g.XY(x, y)
	off := y*8*img.CStride + x*8
	flat8x8(img.Cb[off:], img.CStride, dcSample(c.dc[PlaneCb][xy]))
	flat8x8(img.Cr[off:], img.CStride, dcSample(c.dc[PlaneCr][xy]))
}

func dcSample(dc int16) byte { return byte(clip(int(dc), 0, maxDC) / 8) }

func flat8x8(p []byte, stride int, v byte) {
	for y := 0; y < 8; y++ {
		row := p[y*stride : y*stride+8]
		for i := range row {
			row[i] = v
		}
	}
}
