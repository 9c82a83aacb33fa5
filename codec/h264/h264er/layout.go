/*
DESCRIPTION
  layout.go provides the motion vector storage layouts used by H.264 and by
  other MPEG style decoders.

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

// Layout describes how motion vectors are stored in Picture.MotionVal. A
// macroblock owns an MVStep by MVStep square of vectors; rows of vectors are
// MVStride apart.
type Layout interface {
	MVStep() int
	MVStride(g Geometry) int
	MVSize(g Geometry) int

	// CommitMacroblock sets every vector of the macroblock at (x, y) to v.
	CommitMacroblock(mvs []MV, g Geometry, x, y int, v MV)
}

// H264Layout stores one vector per 4x4 block.
type H264Layout struct{}

func (H264Layout) MVStep() int { return 4 }
func (H264Layout) MVStride(g Geometry) int { return 4 * g.MBWidth }
func (l H264Layout) MVSize(g Geometry) int { return l.MVStride(g) * 4 * g.MBHeight }
func (l H264Layout) CommitMacroblock(mvs []MV, g Geometry, x, y int, v MV) { fill(l, mvs, g, x, y, v) }

// GenericLayout stores one vector per 8x8 block at B8Stride.
type GenericLayout struct{}

func (GenericLayout) MVStep() int { return 2 }
func (GenericLayout) MVStride(g Geometry) int { return g.B8Stride }
func (l GenericLayout) MVSize(g Geometry) int { return l.MVStride(g) * 2 * g.MBHeight }
func (l GenericLayout) CommitMacroblock(mvs []MV, g Geometry, x, y int, v MV) { fill(l, mvs, g, x, y, v) }

// motionIndex returns the index of the top left vector of macroblock (x, y).
func motionIndex(l Layout, g Geometry, x, y int) int {
	return (x + y*l.MVStride(g)) * l.MVStep()
}

// blockIndex returns the index of the top left vector of 8x8 block n, in
// raster order, of macroblock (x, y).
func blockIndex(l Layout, g Geometry, x, y, n int) int {
	h := l.MVStep() / 2
	return motionIndex(l, g, x, y) + (n&1)*h + (n>>1)*h*l.MVStride(g)
}

func fill(l Layout, mvs []MV, g Geometry, x, y int, v MV) {
	i0 := motionIndex(l, g, x, y)
	step, stride := l.MVStep(), l.MVStride(g)
	for j := 0; j < step; j++ {
		for i := 0; i < step; i++ {
			mvs[i0+i+j*stride] = v
		}
	}
}
