/*
DESCRIPTION
  slice.go provides slice accounting, i.e. the recording of decoded slice
  ranges and their end status in the damage map.

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

// AddSlice records a slice covering scan positions start to end inclusive.
// status holds the end bits of the data kinds that decoded cleanly up to end,
// or error bits for kinds that failed at end. An empty slice has end equal to
// start-1 and changes nothing. An end of MBNum or more means the slice ran
// past the end of the frame.
func (c *Context) AddSlice(start, end int, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.f.HWAccel {
		return
	}

	g := c.g
	if end < start {
		c.log.Debug("empty or reversed slice ignored", "start", start, "end", end)
		return
	}
	startI := clip(start, 0, g.MBNum-1)
	endI := clip(end, 0, g.MBNum)
	startXY := g.MBIndex2XY[startI]
	endXY := g.MBIndex2XY[endI]
	if startI > endI || startXY > endXY {
		c.log.Error("slice end before start", "start", start, "end", end)
		return
	}

	if !c.cfg.Conceal {
		return
	}

	mask := ^SliceStart
	for _, k := range kinds {
		b := k.errorBit() | k.endBit()
		if status&b != 0 {
			mask &^= b
			c.errCount += startI - endI - 1
		}
	}

	if status&MBError != 0 {
		c.errorOccurred = true
		c.errCount = maxErrCount
	}

	for i := startXY; i < endXY; i++ {
		c.status[i] &= mask
	}

	if endI == g.MBNum {
		c.errCount = maxErrCount
	} else {
		c.status[endXY] &= mask
		c.status[endXY] |= status
	}

	c.status[startXY] |= SliceStart

	// A slice that starts where the previous one did not end cleanly means
	// trailing damage was swallowed.
	if startXY > 0 && !c.sliceThreads && c.supported() && int(c.cfg.SkipTop)*g.MBWidth < startI {
		prev := c.status[g.MBIndex2XY[startI-1]] &^ SliceStart
		if prev != MBEnd {
			c.errorOccurred = true
			c.errCount = maxErrCount
		}
	}
}

// AddSliceXY is AddSlice with scan positions given as macroblock coordinates,
// i.e. position x + y*MBWidth. ex may be -1 for the last macroblock of the
// previous row.
func (c *Context) AddSliceXY(sx, sy, ex, ey int, status Status) {
	w := c.g.MBWidth
	c.AddSlice(sx+sy*w, ex+ey*w, status)
}
