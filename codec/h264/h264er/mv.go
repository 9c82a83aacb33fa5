/*
DESCRIPTION
  mv.go reconstructs the motion vectors of damaged inter macroblocks of P
  pictures by iterative relaxation over the macroblock grid, scoring candidate
  vectors by how well the rendered macroblock joins its trusted neighbours.

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

// mvState is the relaxation state of a macroblock. The zero state means the
// macroblock has not been visited at the current depth.
type mvState uint8

const (
	stateNone      mvState = 0
	stateUnchanged mvState = 2
	stateChanged   mvState = 4
	stateFrozen    mvState = 8
)

const (
	maxPasses = 10
	minPasses = 2

	// worstScore exceeds any possible boundary score.
	worstScore = 256 * 256 * 256 * 64
)

type candidate struct {
	mv  MV
	ref int
}

// candidateOutcome tells how a candidate list was built.
type candidateOutcome uint8

const (
	neighboursOnly    candidateOutcome = iota // Neighbours, zero and own vector.
	withMeanAndMedian                         // Mean and median of neighbours added.
)

// buildCandidates returns the candidate vectors for a macroblock given the
// vectors of its visited neighbours and its own current vector. The mean
// and median of the neighbours are included only when there are at least two
// neighbours all using the same reference. The zero vector and own follow, so
// own is always last.
func buildCandidates(nb []candidate, own candidate) ([]candidate, candidateOutcome) {
	cands := make([]candidate, 0, len(nb)+4)
	cands = append(cands, nb...)
	outcome := neighboursOnly
	if len(nb) > 1 && sameRef(nb) {
		cands = append(cands, mean(nb), median(nb))
		outcome = withMeanAndMedian
	}
	cands = append(cands, candidate{}, own)
	return cands, outcome
}

func sameRef(nb []candidate) bool {
	for i := 1; i < len(nb); i++ {
		if nb[i].ref != nb[i-1].ref {
			return false
		}
	}
	return true
}

func mean(nb []candidate) candidate {
	var sx, sy, sr int
	for _, n := range nb {
		sx += n.mv.X
		sy += n.mv.Y
		sr += n.ref
	}
	l := len(nb)
	return candidate{mv: MV{X: sx / l, Y: sy / l}, ref: sr / l}
}

// median returns the sum less the extremes, halved for four values. With
// only two values the extremes are taken against zero.
func median(nb []candidate) candidate {
	var minX, minY, minR, maxX, maxY, maxR int
	if len(nb) >= 3 {
		minX, minY, minR = 99999, 99999, 99999
		maxX, maxY, maxR = -99999, -99999, -99999
	}
	var sx, sy, sr int
	for _, n := range nb {
		sx += n.mv.X
		sy += n.mv.Y
		sr += n.ref
		maxX, minX = maxi(maxX, n.mv.X), mini(minX, n.mv.X)
		maxY, minY = maxi(maxY, n.mv.Y), mini(minY, n.mv.Y)
		maxR, minR = maxi(maxR, n.ref), mini(minR, n.ref)
	}
	m := candidate{mv: MV{X: sx - maxX - minX, Y: sy - maxY - minY}, ref: sr - maxR - minR}
	if len(nb) == 4 {
		m.mv.X /= 2
		m.mv.Y /= 2
		m.ref /= 2
	}
	return m
}

// pickCandidate returns the index of the lowest scoring candidate. Ties go to
// the later candidate. Candidates with a negative reference are not scored,
// and neither are those score reports as unusable. ok is false if no
// candidate could be scored.
func pickCandidate(cands []candidate, score func(candidate) (int, bool)) (best int, ok bool) {
	bestScore := worstScore
	for i, cd := range cands {
		if cd.ref < 0 {
			continue
		}
		s, usable := score(cd)
		if !usable {
			continue
		}
		if s <= bestScore {
			best, bestScore, ok = i, s, true
		}
	}
	return best, ok
}

// guessMV fills the motion vectors of damaged inter macroblocks and returns
// the number of relaxation depths run. Vectors are stored in list 0 even
// when only the next picture is available and they are rendered backward.
//
// Macroblocks with trusted vectors start frozen. Each depth visits the
// unfrozen macroblocks next to a frozen one in up to maxPasses checkerboard
// passes, then freezes them, so the trusted region grows by one macroblock
// in each direction per depth. Passes read vectors committed earlier in the
// same pass.
func (c *Context) guessMV() int {
	g := c.g
	cur := c.f.Cur
	mbHeight := g.MBHeight
	if c.hasLast() {
		mbHeight = mini(mbHeight, (c.f.Last.Image.Rect.Dy()+15)>>4)
	}
	if c.hasNext() {
		mbHeight = mini(mbHeight, (c.f.Next.Image.Rect.Dy()+15)>>4)
	}

	mvs, refs := cur.MotionVal[0], cur.RefIndex[0]
	var (
		lastMVs  []MV
		lastRefs []int8
	)
	if c.hasLast() {
		lastMVs, lastRefs = c.f.Last.MotionVal[0], c.f.Last.RefIndex[0]
	}
	useLast := len(lastMVs) >= len(mvs) && len(lastRefs) >= len(refs)
	if useLast {
		c.await(c.f.Last, mbHeight-1)
	}

	for i := range c.state {
		c.state[i] = stateNone
	}
	var numAvail int
	for y := 0; y < mbHeight; y++ {
		for x := 0; x < g.MBWidth; x++ {
			xy := g.XY(x, y)
			if cur.MBType[xy].IsIntra() || c.status[xy]&MVError == 0 {
				c.state[xy] = stateFrozen
				numAvail++
				continue
			}
			if useLast {
				mi := motionIndex(c.layout, g, x, y)
				mvs[mi] = lastMVs[mi]
				refs[4*xy] = lastRefs[4*xy]
			}
		}
	}

	if !c.cfg.GuessMVs || numAvail <= maxi(g.MBWidth, mbHeight)/2 {
		c.zeroMVs(mbHeight)
		return 0
	}

	dir := DirForward
	if !c.hasLast() {
		dir = DirBackward
	}
	step := c.layout.MVStep()
	rowStep := c.layout.MVStride(g) * step

	for depth := 0; ; depth++ {
		noneLeft := true
		changed := 1
		for pass := 0; (changed > 0 || pass < minPasses) && pass < maxPasses; pass++ {
			changed = 0
			for y := 0; y < mbHeight; y++ {
				for x := 0; x < g.MBWidth; x++ {
					if (x^y^pass)&1 != 0 {
						continue
					}
					xy := g.XY(x, y)
					if c.state[xy] == stateFrozen {
						continue
					}
					nbState := c.neighbourStates(x, y, mbHeight)
					if nbState&stateFrozen == 0 {
						continue
					}
					if pass >= minPasses && nbState&stateChanged == 0 {
						continue
					}
					noneLeft = false

					mi := motionIndex(c.layout, g, x, y)
					var nbBuf [4]candidate
					nb := nbBuf[:0]
					if x > 0 && c.state[xy-1] != stateNone {
						nb = append(nb, candidate{mvs[mi-step], int(refs[4*(xy-1)])})
					}
					if x+1 < g.MBWidth && c.state[xy+1] != stateNone {
						nb = append(nb, candidate{mvs[mi+step], int(refs[4*(xy+1)])})
					}
					if y > 0 && c.state[xy-g.MBStride] != stateNone {
						nb = append(nb, candidate{mvs[mi-rowStep], int(refs[4*(xy-g.MBStride)])})
					}
					if y+1 < mbHeight && c.state[xy+g.MBStride] != stateNone {
						nb = append(nb, candidate{mvs[mi+rowStep], int(refs[4*(xy+g.MBStride)])})
					}

					prev := candidate{mvs[mi], int(refs[4*xy])}
					cands, _ := buildCandidates(nb, prev)
					best, ok := pickCandidate(cands, func(cd candidate) (int, bool) {
						return c.boundaryScore(x, y, mbHeight, dir, cd)
					})
					win := cands[best]
					if !ok {
						c.log.Debug("no renderable candidate, using zero vector", "x", x, "y", y)
						win = candidate{}
					}

					c.layout.CommitMacroblock(mvs, g, x, y, win.mv)
					for n := 0; n < 4; n++ {
						refs[4*xy+n] = int8(win.ref)
					}
					p := Prediction{X: x, Y: y, Ref: win.ref, Dir: dir, Type: MV16x16}
					p.MV[listOf(dir)][0] = win.mv
					if !c.dec.DecodeMB(cur.Image, p) {
						c.log.Warning("could not render concealed macroblock", "x", x, "y", y, "ref", win.ref)
					}

					if win.mv != prev.mv {
						c.state[xy] = stateChanged
						changed++
					} else {
						c.state[xy] = stateUnchanged
					}
				}
			}
		}

		if noneLeft {
			c.log.Debug("motion vector relaxation done", "depths", depth+1)
			return depth + 1
		}
		for i, s := range c.state {
			if s == stateChanged || s == stateUnchanged {
				c.state[i] = stateFrozen
			}
		}
	}
}

// neighbourStates returns the union of the states of the four neighbours of
// (x, y).
func (c *Context) neighbourStates(x, y, mbHeight int) mvState {
	g := c.g
	xy := g.XY(x, y)
	var s mvState
	if x > 0 {
		s |= c.state[xy-1]
	}
	if x+1 < g.MBWidth {
		s |= c.state[xy+1]
	}
	if y > 0 {
		s |= c.state[xy-g.MBStride]
	}
	if y+1 < mbHeight {
		s |= c.state[xy+g.MBStride]
	}
	return s
}

// boundaryScore renders candidate cd for macroblock (x, y) into the scratch
// picture and returns the sum of absolute sample differences across the
// edges shared with visited neighbours in the current picture. ok is false if
// the decoder could not render cd.
func (c *Context) boundaryScore(x, y, mbHeight int, dir Direction, cd candidate) (score int, ok bool) {
	g := c.g
	p := Prediction{X: x, Y: y, Ref: cd.ref, Dir: dir, Type: MV16x16}
	p.MV[listOf(dir)][0] = cd.mv
	if !c.dec.DecodeMB(c.scratch, p) {
		return 0, false
	}

	cur, pred := c.f.Cur.Image, c.scratch
	cs, ps := cur.YStride, pred.YStride
	x0, y0 := x*16, y*16
	xy := g.XY(x, y)

	if x > 0 && c.state[xy-1] != stateNone {
		for k := 0; k < 16; k++ {
			score += absi(int(cur.Y[(y0+k)*cs+x0-1]) - int(pred.Y[(y0+k)*ps+x0]))
		}
	}
	if x+1 < g.MBWidth && c.state[xy+1] != stateNone {
		for k := 0; k < 16; k++ {
			score += absi(int(pred.Y[(y0+k)*ps+x0+15]) - int(cur.Y[(y0+k)*cs+x0+16]))
		}
	}
	if y > 0 && c.state[xy-g.MBStride] != stateNone {
		for k := 0; k < 16; k++ {
			score += absi(int(cur.Y[(y0-1)*cs+x0+k]) - int(pred.Y[y0*ps+x0+k]))
		}
	}
	if y+1 < mbHeight && c.state[xy+g.MBStride] != stateNone {
		for k := 0; k < 16; k++ {
			score += absi(int(pred.Y[(y0+15)*ps+x0+k]) - int(cur.Y[(y0+16)*cs+x0+k]))
		}
	}
	return score, true
}

// zeroMVs gives every damaged inter macroblock a zero vector to reference 0.
// Like the relaxation, it stores vectors in list 0 whichever direction they
// are rendered from.
func (c *Context) zeroMVs(mbHeight int) {
	g := c.g
	cur := c.f.Cur
	dir := DirForward
	if !c.hasLast() {
		dir = DirBackward
	}
	for y := 0; y < mbHeight; y++ {
		for x := 0; x < g.MBWidth; x++ {
			xy := g.XY(x, y)
			if cur.MBType[xy].IsIntra() || c.status[xy]&MVError == 0 {
				continue
			}
			c.layout.CommitMacroblock(cur.MotionVal[0], g, x, y, MV{})
			for n := 0; n < 4; n++ {
				cur.RefIndex[0][4*xy+n] = 0
			}
			c.dec.DecodeMB(cur.Image, Prediction{X: x, Y: y, Dir: dir, Type: MV16x16})
		}
	}
}

// listOf returns the reference list of a single direction.
func listOf(d Direction) int {
	if d&DirForward != 0 {
		return 0
	}
	return 1
}
