/*
DESCRIPTION
  er.go provides the error concealment context and the frame level entry
  points FrameStart and FrameEnd.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264er provides error resilience for H.264 and MPEG style video
// decoders. A decoder reports the outcome of every slice it parses; once the
// frame is complete the damaged macroblocks are concealed using motion
// vectors and DC values guessed from their undamaged neighbours.
//
// Usage per frame is FrameStart, any number of AddSlice calls, then FrameEnd.
package h264er

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/ausocean/avconceal/codec/me"
	"github.com/ausocean/avconceal/config"
	"github.com/ausocean/utils/logging"
)

// ErrNoLogger is returned by New when the config carries no logger.
var ErrNoLogger = errors.New("no logger in config")

// maxErrCount is the saturated error count, meaning full concealment is
// required.
const maxErrCount = math.MaxInt

// Plane identifies a sample plane.
type Plane int

// Sample planes.
const (
	PlaneY Plane = iota
	PlaneCb
	PlaneCr
)

// Context holds the error resilience state of a decoder. Per frame state is
// reset by FrameStart.
type Context struct {
	cfg config.Config
	log logging.Logger

	g        Geometry
	dec      Decoder
	layout   Layout
	sad      SADFunc
	progress ProgressWaiter

	sliceThreads bool

	// mu guards the damage map and counters against concurrent AddSlice
	// calls.
	mu            sync.Mutex
	status        []Status
	errCount      int
	errorOccurred bool

	f Frame

	// dc holds luma DC values at 8x8 block resolution (B8Stride) and chroma
	// DC values at macroblock resolution (MBStride), scaled by 8.
	dc [3][]int16

	state   []mvState
	scratch *image.YCbCr

	// allocated records motion vector lists created by FrameEnd, which are
	// released before it returns.
	allocated [2]bool
}

// New returns a new concealment Context for pictures of geometry g. dec
// renders motion compensated macroblocks.
func New(c config.Config, g Geometry, dec Decoder, opts ...Option) (*Context, error) {
	if c.Logger == nil {
		return nil, ErrNoLogger
	}
	if dec == nil {
		return nil, ErrNoDecoder
	}
	if g.MBWidth <= 0 || g.MBHeight <= 0 || len(g.MBIndex2XY) != g.MBNum+1 {
		return nil, ErrBadGeometry
	}

	ctx := &Context{
		cfg:    c,
		log:    c.Logger,
		g:      g,
		dec:    dec,
		layout: layoutFor(c.Layout),
		sad:    me.SAD16,
		status: make([]Status, g.tableSize()),
		state:  make([]mvState, g.tableSize()),
	}
	ctx.dc[PlaneY] = make([]int16, g.B8Stride*2*g.MBHeight)
	ctx.dc[PlaneCb] = make([]int16, g.tableSize())
	ctx.dc[PlaneCr] = make([]int16, g.tableSize())

	for _, o := range opts {
		err := o(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not apply option: %w", err)
		}
	}
	return ctx, nil
}

func layoutFor(name string) Layout {
	if name == config.LayoutGeneric {
		return GenericLayout{}
	}
	return H264Layout{}
}

// Update replaces the configuration of the context. It takes effect from the
// next frame; the layout is fixed at construction.
func (c *Context) Update(cfg config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.Logger == nil {
		cfg.Logger = c.log
	}
	c.cfg = cfg
	c.log = cfg.Logger
}

// DC returns the DC grid of plane p. It is owned by the Context; in
// partitioned frames the decoder stores the DC values of intra macroblocks
// here before FrameEnd.
func (c *Context) DC(p Plane) []int16 { return c.dc[p] }

// ErrorOccurred reports whether a hard error has been reported for the
// current frame.
func (c *Context) ErrorOccurred() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorOccurred
}

// FrameStart installs f as the current frame and marks every macroblock as
// damaged, so that a frame no slice is reported for is fully concealed.
func (c *Context) FrameStart(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.f = f
	if !c.cfg.Conceal {
		return
	}
	for i := range c.status {
		c.status[i] = untouched
	}
	for p := range c.dc {
		for i := range c.dc[p] {
			c.dc[p][i] = 1024
		}
	}
	c.errCount = 3 * c.g.MBNum
	c.errorOccurred = false
}

// supported reports whether the current frame can be concealed.
func (c *Context) supported() bool {
	return !c.f.HWAccel && c.f.Cur.valid() && !c.f.Cur.Field
}

func (c *Context) hasLast() bool { return c.f.Last.valid() }
func (c *Context) hasNext() bool { return c.f.Next.valid() }

// FrameEnd conceals the damage reported for the current frame. It does
// nothing if concealment is disabled, nothing is damaged, the picture is
// hardware decoded or a field, or only the skipped border rows are damaged.
func (c *Context) FrameEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.g
	if !c.cfg.Conceal || c.errCount == 0 || !c.supported() ||
		c.errCount == 3*g.MBWidth*int(c.cfg.SkipTop+c.cfg.SkipBottom) {
		return
	}
	cur := c.f.Cur

	c.prepare()

	if c.cfg.DebugER {
		c.dumpStatus()
	}

	c.propagate()

	var dcErr, acErr, mvErr int
	for i := 0; i < g.MBNum; i++ {
		s := c.status[g.MBIndex2XY[i]]
		if s&DCError != 0 {
			dcErr++
		}
		if s&ACError != 0 {
			acErr++
		}
		if s&MVError != 0 {
			mvErr++
		}
	}
	c.log.Info("concealing errors", "dc", dcErr, "ac", acErr, "mv", mvErr, "type", cur.Type.String())

	cur.ConcealmentActive = true

	c.resolveTypes()
	c.redecodeAC()

	if cur.Type == PictureB {
		c.projectB()
	} else {
		c.guessMV()
	}

	if !c.f.HWIDCT {
		c.fillDC()
		c.guessDC(c.dc[PlaneY], g.MBWidth*2, g.MBHeight*2, g.B8Stride, true)
		c.guessDC(c.dc[PlaneCb], g.MBWidth, g.MBHeight, g.MBStride, false)
		c.guessDC(c.dc[PlaneCr], g.MBWidth, g.MBHeight, g.MBStride, false)
		filter181(c.dc[PlaneY], g.MBWidth*2, g.MBHeight*2, g.B8Stride)
		c.renderDCOnly()
	}

	if c.cfg.Deblock {
		c.deblock()
	}

	for i := 0; i < g.MBNum; i++ {
		xy := g.MBIndex2XY[i]
		if c.f.SkipTable != nil && cur.Type != PictureB && c.status[xy]&MBError != 0 {
			c.f.SkipTable[xy] = false
		}
		if c.f.IntraTable != nil {
			c.f.IntraTable[xy] = true
		}
	}

	for i, a := range c.allocated {
		if a {
			cur.MotionVal[i] = nil
			cur.RefIndex[i] = nil
			c.allocated[i] = false
		}
	}
}

// prepare drops unusable references and makes sure the current picture has
// the tables the concealment passes write to.
func (c *Context) prepare() {
	g := c.g
	cur := c.f.Cur
	if c.f.Last.valid() && !c.f.Last.compatible(cur) {
		c.log.Warning("cannot use previous picture in error concealment")
		c.f.Last = nil
	}
	if c.f.Next.valid() && !c.f.Next.compatible(cur) {
		c.log.Warning("cannot use next picture in error concealment")
		c.f.Next = nil
	}

	if len(cur.MBType) < g.tableSize() {
		t := make([]MBType, g.tableSize())
		copy(t, cur.MBType)
		cur.MBType = t
	}
	if cur.MotionVal[0] == nil || cur.RefIndex[0] == nil {
		c.log.Warning("motion vectors not available, allocating")
	}
	for i := range cur.MotionVal {
		if cur.MotionVal[i] == nil || cur.RefIndex[i] == nil {
			cur.MotionVal[i] = make([]MV, c.layout.MVSize(g))
			cur.RefIndex[i] = make([]int8, 4*g.tableSize())
			c.allocated[i] = true
		}
	}
	if c.scratch == nil || c.scratch.Rect != cur.Image.Rect || c.scratch.SubsampleRatio != cur.Image.SubsampleRatio {
		c.scratch = image.NewYCbCr(cur.Image.Rect, cur.Image.SubsampleRatio)
	}
}

// resolveTypes gives every macroblock of unknown type the most likely type,
// and makes every macroblock intra if there is no reference to predict from.
func (c *Context) resolveTypes() {
	g := c.g
	cur := c.f.Cur
	intra := c.isIntraMoreLikely()
	for i := 0; i < g.MBNum; i++ {
		xy := g.MBIndex2XY[i]
		if !unknownType(c.status[xy]) {
			continue
		}
		if intra {
			cur.MBType[xy] = MBIntra4x4
		} else {
			cur.MBType[xy] = MB16x16 | MBL0
		}
	}

	if c.hasLast() || c.hasNext() {
		return
	}
	for i := 0; i < g.MBNum; i++ {
		xy := g.MBIndex2XY[i]
		if !cur.MBType[xy].IsIntra() {
			cur.MBType[xy] = MBIntra4x4
		}
	}
}

// redecodeAC renders inter macroblocks whose residual is damaged but whose
// motion vectors are intact, using those vectors.
func (c *Context) redecodeAC() {
	g := c.g
	cur := c.f.Cur
	list, dir := 0, DirForward
	if !c.hasLast() {
		list, dir = 1, DirBackward
	}
	for y := 0; y < g.MBHeight; y++ {
		for x := 0; x < g.MBWidth; x++ {
			xy := g.XY(x, y)
			t := cur.MBType[xy]
			s := c.status[xy]
			if t.IsIntra() || s&MVError != 0 || s&ACError == 0 {
				continue
			}

			p := Prediction{X: x, Y: y, Dir: dir, Type: MV16x16}
			if t.Is8x8() {
				p.Type = MV8x8
				for n := 0; n < 4; n++ {
					p.MV[list][n] = cur.MotionVal[list][blockIndex(c.layout, g, x, y, n)]
				}
			} else {
				p.MV[list][0] = cur.MotionVal[list][motionIndex(c.layout, g, x, y)]
			}
			c.dec.DecodeMB(cur.Image, p)
		}
	}
}

func (c *Context) await(p *Picture, row int) {
	if c.progress != nil {
		c.progress.AwaitProgress(p, row)
	}
}
