/*
DESCRIPTION
  propagate.go spreads damage flags across the damage map. A bitstream error
  desynchronises the rest of its slice, so errors found late in a slice are
  carried back to the slice start and whole macroblock errors are carried
  forward to the next slice.

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

// Backward marking distances, in macroblocks.
const (
	markDistance            = 50
	markDistancePartitioned = 100
	farAway                 = 9999999
)

// missingSliceGuard is added to MBWidth to give the lowest scan position
// examined for missing slices.
const missingSliceGuard = 100

func (c *Context) propagate() {
	c.markOverlapping()
	if c.f.Partitioned {
		c.markPartitions()
	}
	if c.cfg.Explode {
		c.markMissingSlices()
	}
	if !c.sliceThreads {
		c.markNearErrors()
	}
	c.markForward()
}

// markOverlapping marks as damaged, for each kind, every macroblock of a
// slice after the last point at which that kind is known to have ended or
// failed.
func (c *Context) markOverlapping() {
	g := c.g
	for _, k := range kinds {
		var endOK bool
		for i := g.MBNum - 1; i >= 0; i-- {
			xy := g.MBIndex2XY[i]
			s := c.status[xy]
			if s&(k.errorBit()|k.endBit()) != 0 {
				endOK = true
			}
			if !endOK {
				c.status[xy] |= k.errorBit()
			}
			if s&SliceStart != 0 {
				endOK = false
			}
		}
	}
}

// markPartitions marks AC data damaged between the end of the AC partition
// and the end of the other partitions.
func (c *Context) markPartitions() {
	g := c.g
	var endOK bool
	for i := g.MBNum - 1; i >= 0; i-- {
		xy := g.MBIndex2XY[i]
		s := c.status[xy]
		if s&ACEnd != 0 {
			endOK = false
		}
		if s&(MVEnd|DCEnd|ACError) != 0 {
			endOK = true
		}
		if !endOK {
			c.status[xy] |= ACError
		}
		if s&SliceStart != 0 {
			endOK = false
		}
	}
}

// markMissingSlices marks whole macroblock errors on runs that ended cleanly
// but are followed by a slice nothing was reported for.
func (c *Context) markMissingSlices() {
	g := c.g
	endOK := true
	for i := g.MBNum - 2; i >= g.MBWidth+missingSliceGuard; i-- {
		xy := g.MBIndex2XY[i]
		s1 := c.status[xy]
		s2 := c.status[g.MBIndex2XY[i+1]]
		if s1&SliceStart != 0 {
			endOK = true
		}
		if s2 == untouched && s1 != untouched && s1&MBEnd != 0 {
			endOK = false
		}
		if !endOK {
			c.status[xy] |= MBError
		}
	}
}

// markNearErrors marks, for each kind, macroblocks that precede an error of
// that kind in the same slice by less than the marking distance. Skip coded
// macroblocks do not count towards the distance.
func (c *Context) markNearErrors() {
	g := c.g
	threshold := markDistance
	if c.f.Partitioned {
		threshold = markDistancePartitioned
	}
	for _, k := range kinds {
		distance := farAway
		for i := g.MBNum - 1; i >= 0; i-- {
			xy := g.MBIndex2XY[i]
			s := c.status[xy]
			if c.f.SkipTable == nil || !c.f.SkipTable[xy] {
				distance++
			}
			if s&k.errorBit() != 0 {
				distance = 0
			}
			if distance < threshold {
				c.status[xy] |= k.errorBit()
			}
			if s&SliceStart != 0 {
				distance = farAway
			}
		}
	}
}

// markForward carries whole macroblock errors forward to the end of their
// slice.
func (c *Context) markForward() {
	g := c.g
	var err Status
	for i := 0; i < g.MBNum; i++ {
		xy := g.MBIndex2XY[i]
		s := c.status[xy]
		if s&SliceStart != 0 {
			err = s & MBError
			continue
		}
		err |= s & MBError
		c.status[xy] |= err
	}
}
