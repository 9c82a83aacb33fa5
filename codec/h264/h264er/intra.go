/*
DESCRIPTION
  intra.go decides whether macroblocks of unknown type are better concealed
  spatially or temporally.

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

// Intra likelihood sampling parameters.
const (
	minUndamaged = 5
	maxSamples   = 50
)

func (c *Context) isIntraMoreLikely() bool {
	if !c.hasLast() {
		return true
	}
	if c.cfg.FavorInter {
		return false
	}

	g := c.g
	var undamaged int
	for i := 0; i < g.MBNum; i++ {
		if !unknownType(c.status[g.MBIndex2XY[i]]) {
			undamaged++
		}
	}
	if undamaged < minUndamaged {
		return false
	}

	skip := maxi(undamaged/maxSamples, 1)
	cur, last := c.f.Cur, c.f.Last
	var score, j int
	for y := 0; y < g.MBHeight-1; y++ {
		for x := 0; x < g.MBWidth; x++ {
			xy := g.XY(x, y)
			if unknownType(c.status[xy]) {
				continue
			}
			j++
			if j%skip != 0 {
				continue
			}

			if cur.Type == PictureI {
				stride := cur.Image.YStride
				off := y*16*stride + x*16
				c.await(last, y+1)
				score += c.sad(last.Image.Y[off:], cur.Image.Y[off:], stride, 16)
				score -= c.sad(last.Image.Y[off:], last.Image.Y[off+16*stride:], stride, 16)
				continue
			}
			if cur.MBType[xy].IsIntra() {
				score++
			} else {
				score--
			}
		}
	}
	return score > 0
}

// unknownType reports whether both the DC and the motion data of a
// macroblock are damaged, leaving its type unknown.
func unknownType(s Status) bool { return s&DCError != 0 && s&MVError != 0 }
