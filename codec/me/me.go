/*
DESCRIPTION
  me.go provides pixel comparison primitives used for motion estimation and
  for scoring motion vector candidates during error concealment.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package me provides block comparison and motion search over 8 bit sample
// planes.
package me

// SAD16 returns the sum of absolute differences between two 16 sample wide
// blocks of h rows. a and b start at the top left sample of each block and
// share the same stride.
func SAD16(a, b []byte, stride, h int) int {
	var sum int
	for y := 0; y < h; y++ {
		ra := a[y*stride : y*stride+16]
		rb := b[y*stride : y*stride+16]
		for x := range ra {
			sum += absi(int(ra[x]) - int(rb[x]))
		}
	}
	return sum
}

// Plane describes a single 8 bit sample plane.
type Plane struct {
	Data          []byte
	Stride        int
	Width, Height int
}

// FullSearch finds the integer displacement (dx, dy), within rng samples in
// each direction, of the 16x16 block in ref that best matches the macroblock
// at (mbX, mbY) in cur. Candidate blocks must lie entirely inside ref. Ties
// favour the smallest displacement, and the zero vector is always tried
// first.
func FullSearch(cur, ref Plane, mbX, mbY, rng int) (dx, dy int) {
	x0, y0 := mbX*16, mbY*16
	src := cur.Data[y0*cur.Stride+x0:]
	best := sadAt(src, cur.Stride, ref, x0, y0)
	bestLen := 0

	for y := -rng; y <= rng; y++ {
		for x := -rng; x <= rng; x++ {
			rx, ry := x0+x, y0+y
			if rx < 0 || ry < 0 || rx+16 > ref.Width || ry+16 > ref.Height {
				continue
			}
			s := sadAt(src, cur.Stride, ref, rx, ry)
			l := absi(x) + absi(y)
			if s < best || (s == best && l < bestLen) {
				best, bestLen = s, l
				dx, dy = x, y
			}
		}
	}
	return dx, dy
}

func sadAt(src []byte, srcStride int, ref Plane, x, y int) int {
	var sum int
	for j := 0; j < 16; j++ {
		rs := src[j*srcStride : j*srcStride+16]
		rr := ref.Data[(y+j)*ref.Stride+x : (y+j)*ref.Stride+x+16]
		for i := range rs {
			sum += absi(int(rs[i]) - int(rr[i]))
		}
	}
	return sum
}

func absi(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
