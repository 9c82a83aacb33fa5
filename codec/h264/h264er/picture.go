/*
DESCRIPTION
  picture.go provides the picture and frame types shared with the decoder, and
  the interfaces of the collaborators the concealment engine calls.

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

import "image"

// PictureType is the coding type of a picture.
type PictureType uint8

// Picture types.
const (
	PictureI PictureType = iota
	PictureP
	PictureB
)

func (t PictureType) String() string {
	switch t {
	case PictureI:
		return "I"
	case PictureP:
		return "P"
	case PictureB:
		return "B"
	}
	return "?"
}

// MV is a motion vector in the units of the motion vector layout, i.e.
// quarter samples for H264Layout and half samples for GenericLayout.
type MV struct {
	X, Y int
}

// Picture is a decoded picture and its per macroblock side data. Pictures are
// owned by the decoder; the engine modifies the current picture in place.
type Picture struct {
	// Image holds the 4:2:0 samples. Empty chroma planes denote a monochrome
	// picture.
	Image *image.YCbCr

	Type  PictureType
	Field bool // Field pictures are not concealed.

	// MBType is indexed by raster macroblock index.
	MBType []MBType

	// MotionVal holds the L0 and L1 motion vectors in the arrangement given by
	// the Layout in use. RefIndex holds four reference indices per
	// macroblock, one per 8x8 block, indexed 4*xy.
	MotionVal [2][]MV
	RefIndex  [2][]int8

	// ConcealmentActive is set by FrameEnd when the picture was concealed.
	ConcealmentActive bool
}

// NewPicture returns a picture of type t holding img, with macroblock type,
// motion vector and reference tables sized for g and l.
func NewPicture(img *image.YCbCr, t PictureType, g Geometry, l Layout) *Picture {
	p := &Picture{Image: img, Type: t, MBType: make([]MBType, g.tableSize())}
	for i := range p.MotionVal {
		p.MotionVal[i] = make([]MV, l.MVSize(g))
		p.RefIndex[i] = make([]int8, 4*g.tableSize())
	}
	return p
}

func (p *Picture) valid() bool { return p != nil && p.Image != nil }

func (p *Picture) monochrome() bool { return len(p.Image.Cb) == 0 || len(p.Image.Cr) == 0 }

// compatible reports whether p has the same dimensions and sample layout as
// q, so that samples at equal offsets may be compared.
func (p *Picture) compatible(q *Picture) bool {
	a, b := p.Image, q.Image
	return a.Rect.Dx() == b.Rect.Dx() && a.Rect.Dy() == b.Rect.Dy() &&
		a.SubsampleRatio == b.SubsampleRatio && a.YStride == b.YStride &&
		p.monochrome() == q.monochrome()
}

// Frame is the per frame input to FrameStart.
type Frame struct {
	Cur  *Picture
	Last *Picture // Previous reference, nil if unavailable.
	Next *Picture // Next reference, nil if unavailable.

	// PPTime and PBTime are the picture order distances from the previous
	// reference to the next reference and to the current picture. They are
	// used to project motion for B pictures; PPTime 0 means unknown.
	PPTime int
	PBTime int

	Partitioned bool // DC, AC and MV data arrive in separate partitions.
	HWAccel     bool // Picture is owned by a hardware decoder.
	HWIDCT      bool // DC reconstruction is unavailable.

	// SkipTable marks skip coded macroblocks and IntraTable macroblocks with
	// intra predictable neighbours. Both are optional and indexed by raster
	// macroblock index.
	SkipTable  []bool
	IntraTable []bool
}

// Direction selects the reference lists used by a prediction.
type Direction uint8

// Prediction directions.
const (
	DirForward Direction = 1 << iota
	DirBackward
)

// MVType is the motion vector granularity of a prediction.
type MVType uint8

// Motion vector granularities.
const (
	MV16x16 MVType = iota
	MV8x8
)

// Prediction describes a macroblock to be rendered by a Decoder.
type Prediction struct {
	X, Y int       // Macroblock coordinates.
	Ref  int       // Reference index within each list.
	Dir  Direction // Lists used.
	Type MVType

	// MV holds one vector per list for MV16x16, or four per list, in 8x8 block
	// raster order, for MV8x8.
	MV [2][4]MV
}

// Decoder renders a motion compensated macroblock into dst, which has the
// dimensions of the current picture. DecodeMB may be called repeatedly for
// the same macroblock and must not depend on the previous content of dst.
// It returns false, leaving dst unchanged, if p cannot be rendered, such as
// when its reference is not available.
type Decoder interface {
	DecodeMB(dst *image.YCbCr, p Prediction) bool
}

// SADFunc returns the sum of absolute differences of two 16 sample wide blocks
// of h rows sharing stride.
type SADFunc func(a, b []byte, stride, h int) int

// ProgressWaiter blocks until row of p has been decoded.
type ProgressWaiter interface {
	AwaitProgress(p *Picture, row int)
}
