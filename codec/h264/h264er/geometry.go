/*
DESCRIPTION
  geometry.go describes the macroblock grid of a picture and the mapping from
  decode (scan) order to raster order.

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

import (
	"errors"
	"fmt"
)

// ErrBadScanOrder is returned by WithScanOrder when the order is not a
// permutation of the raster macroblock indices.
var ErrBadScanOrder = errors.New("scan order is not a permutation of macroblocks")

// Geometry is the macroblock grid of a picture. Per macroblock tables are
// indexed by raster index x + y*MBStride; the extra column per row keeps
// left and right neighbours of edge macroblocks apart.
type Geometry struct {
	MBWidth  int
	MBHeight int
	MBStride int // MBWidth + 1.
	B8Stride int // Stride of tables kept at 8x8 block resolution, 2*MBWidth + 1.
	MBNum    int

	// MBIndex2XY maps a scan order position to a raster index. It has
	// MBNum+1 entries, the last being the raster index one past the final
	// macroblock.
	MBIndex2XY []int
}

// NewGeometry returns the geometry of a mbWidth by mbHeight macroblock
// picture decoded in raster order.
func NewGeometry(mbWidth, mbHeight int) Geometry {
	g := Geometry{
		MBWidth:  mbWidth,
		MBHeight: mbHeight,
		MBStride: mbWidth + 1,
		B8Stride: 2*mbWidth + 1,
		MBNum:    mbWidth * mbHeight,
	}
	g.MBIndex2XY = make([]int, g.MBNum+1)
	for y := 0; y < mbHeight; y++ {
		for x := 0; x < mbWidth; x++ {
			g.MBIndex2XY[x+y*mbWidth] = g.XY(x, y)
		}
	}
	g.MBIndex2XY[g.MBNum] = g.end()
	return g
}

// WithScanOrder returns a copy of g in which scan position i visits the
// macroblock at raster position order[i], where raster positions count
// x + y*MBWidth.
func (g Geometry) WithScanOrder(order []int) (Geometry, error) {
	if len(order) != g.MBNum {
		return g, fmt.Errorf("%w: got %d entries, want %d", ErrBadScanOrder, len(order), g.MBNum)
	}
	seen := make([]bool, g.MBNum)
	m := make([]int, g.MBNum+1)
	for i, r := range order {
		if r < 0 || r >= g.MBNum || seen[r] {
			return g, fmt.Errorf("%w: bad entry %d at %d", ErrBadScanOrder, r, i)
		}
		seen[r] = true
		m[i] = g.XY(r%g.MBWidth, r/g.MBWidth)
	}
	m[g.MBNum] = g.end()
	g.MBIndex2XY = m
	return g, nil
}

// XY returns the raster index of the macroblock at (x, y).
func (g Geometry) XY(x, y int) int { return x + y*g.MBStride }

// Pos returns the macroblock coordinates of raster index xy.
func (g Geometry) Pos(xy int) (x, y int) { return xy % g.MBStride, xy / g.MBStride }

// tableSize is the length of per macroblock tables, including a row of slack.
func (g Geometry) tableSize() int { return g.MBStride * (g.MBHeight + 1) }

func (g Geometry) end() int { return (g.MBHeight-1)*g.MBStride + g.MBWidth }
