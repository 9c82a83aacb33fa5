/*
DESCRIPTION
  bframe.go conceals damaged macroblocks of B pictures by projecting the
  motion of the co-located macroblock in the next reference picture.

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

func (c *Context) projectB() {
	g := c.g
	cur, next := c.f.Cur, c.f.Next
	pp, pb := c.f.PPTime, c.f.PBTime

	for y := 0; y < g.MBHeight; y++ {
		for x := 0; x < g.MBWidth; x++ {
			xy := g.XY(x, y)
			s := c.status[xy]
			if cur.MBType[xy].IsIntra() || s&MVError == 0 || s&ACError == 0 {
				continue
			}

			dir := DirForward | DirBackward
			if !c.hasLast() {
				dir &^= DirForward
			}
			if !c.hasNext() {
				dir &^= DirBackward
			}

			mi := motionIndex(c.layout, g, x, y)
			p := Prediction{X: x, Y: y, Dir: dir, Type: MV16x16}
			if pp != 0 && c.hasNext() && mi < len(next.MotionVal[0]) {
				c.await(next, y)
				n := next.MotionVal[0][mi]
				p.MV[0][0] = MV{X: n.X * pb / pp, Y: n.Y * pb / pp}
				p.MV[1][0] = MV{X: n.X * (pb - pp) / pp, Y: n.Y * (pb - pp) / pp}
			}

			if dir&DirForward != 0 {
				c.layout.CommitMacroblock(cur.MotionVal[0], g, x, y, p.MV[0][0])
			} else {
				p.MV[0][0] = MV{}
			}
			if dir&DirBackward != 0 {
				c.layout.CommitMacroblock(cur.MotionVal[1], g, x, y, p.MV[1][0])
			} else {
				p.MV[1][0] = MV{}
			}
			c.dec.DecodeMB(cur.Image, p)
		}
	}
}
