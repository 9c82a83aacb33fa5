/*
DESCRIPTION
  er_test.go provides testing for the frame level concealment operations.

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
	"image"
	"testing"

	"github.com/ausocean/avconceal/config"
	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
)

// copyDecoder renders macroblocks by copying whole samples from its
// references, rounding vectors down to whole samples. Each list holds only
// reference 0.
type copyDecoder struct {
	refs  [2]*image.YCbCr
	calls []Prediction
}

func (d *copyDecoder) DecodeMB(dst *image.YCbCr, p Prediction) bool {
	d.calls = append(d.calls, p)
	l := listOf(p.Dir)
	ref := d.refs[l]
	if ref == nil || p.Ref != 0 {
		return false
	}
	mv := p.MV[l][0]
	w, h := ref.Rect.Dx(), ref.Rect.Dy()
	for j := 0; j < 16; j++ {
		for i := 0; i < 16; i++ {
			sx := clip(p.X*16+i+mv.X>>2, 0, w-1)
			sy := clip(p.Y*16+j+mv.Y>>2, 0, h-1)
			dst.Y[(p.Y*16+j)*dst.YStride+p.X*16+i] = ref.Y[sy*ref.YStride+sx]
		}
	}
	if len(ref.Cb) == 0 {
		return true
	}
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			sx := clip(p.X*8+i+mv.X>>3, 0, w/2-1)
			sy := clip(p.Y*8+j+mv.Y>>3, 0, h/2-1)
			dst.Cb[(p.Y*8+j)*dst.CStride+p.X*8+i] = ref.Cb[sy*ref.CStride+sx]
			dst.Cr[(p.Y*8+j)*dst.CStride+p.X*8+i] = ref.Cr[sy*ref.CStride+sx]
		}
	}
	return true
}

type progressCall struct {
	pic *Picture
	row int
}

// progressRecorder records the progress waits it is asked for.
type progressRecorder struct {
	calls []progressCall
}

func (r *progressRecorder) AwaitProgress(p *Picture, row int) {
	r.calls = append(r.calls, progressCall{p, row})
}

func checkProgress(t *testing.T, got, want []progressCall) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("unexpected number of progress waits\nGot: %d\nWant: %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("unexpected progress wait %d\nGot: %p row %d\nWant: %p row %d", i, got[i].pic, got[i].row, want[i].pic, want[i].row)
		}
	}
}

// newPicture returns a picture of mbw by mbh inter macroblocks with zero
// motion.
func newPicture(mbw, mbh int, t PictureType) *Picture {
	img := image.NewYCbCr(image.Rect(0, 0, mbw*16, mbh*16), image.YCbCrSubsampleRatio420)
	p := NewPicture(img, t, NewGeometry(mbw, mbh), H264Layout{})
	for i := range p.MBType {
		p.MBType[i] = MB16x16 | MBL0
	}
	return p
}

// fillPicture sets every sample of p using f.
func fillPicture(p *Picture, f func(x, y int) byte) {
	img := p.Image
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			img.Y[y*img.YStride+x] = f(x, y)
		}
	}
	for y := 0; y < img.Rect.Dy()/2; y++ {
		for x := 0; x < img.Rect.Dx()/2; x++ {
			img.Cb[y*img.CStride+x] = f(2*x, 2*y)
			img.Cr[y*img.CStride+x] = 255 - f(2*x, 2*y)
		}
	}
}

func clonePicture(p *Picture) *Picture {
	q := *p
	img := *p.Image
	img.Y = append([]byte(nil), p.Image.Y...)
	img.Cb = append([]byte(nil), p.Image.Cb...)
	img.Cr = append([]byte(nil), p.Image.Cr...)
	q.Image = &img
	q.MBType = append([]MBType(nil), p.MBType...)
	for l := range p.MotionVal {
		q.MotionVal[l] = append([]MV(nil), p.MotionVal[l]...)
		q.RefIndex[l] = append([]int8(nil), p.RefIndex[l]...)
	}
	return &q
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Logger:   (*logging.TestLogger)(t),
		Conceal:  true,
		GuessMVs: true,
		Deblock:  true,
	}
}

func newTestContext(t *testing.T, cfg config.Config, mbw, mbh int, dec Decoder, opts ...Option) *Context {
	t.Helper()
	c, err := New(cfg, NewGeometry(mbw, mbh), dec, opts...)
	if err != nil {
		t.Fatalf("could not create context: %v", err)
	}
	return c
}

// mbPixels returns a copy of the luma samples of macroblock (x, y).
func mbPixels(img *image.YCbCr, x, y int) []byte {
	var b []byte
	for j := 0; j < 16; j++ {
		off := (y*16+j)*img.YStride + x*16
		b = append(b, img.Y[off:off+16]...)
	}
	return b
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		g    Geometry
		dec  Decoder
		opts []Option
		want error
	}{
		{
			name: "valid",
			cfg:  testConfig(t),
			g:    NewGeometry(2, 2),
			dec:  &copyDecoder{},
		},
		{
			name: "no decoder",
			cfg:  testConfig(t),
			g:    NewGeometry(2, 2),
			want: ErrNoDecoder,
		},
		{
			name: "empty geometry",
			cfg:  testConfig(t),
			dec:  &copyDecoder{},
			want: ErrBadGeometry,
		},
		{
			name: "no logger",
			g:    NewGeometry(2, 2),
			dec:  &copyDecoder{},
			want: ErrNoLogger,
		},
		{
			name: "nil layout",
			cfg:  testConfig(t),
			g:    NewGeometry(2, 2),
			dec:  &copyDecoder{},
			opts: []Option{WithLayout(nil)},
			want: ErrNilOption,
		},
		{
			name: "nil SAD",
			cfg:  testConfig(t),
			g:    NewGeometry(2, 2),
			dec:  &copyDecoder{},
			opts: []Option{WithSAD(nil)},
			want: ErrNilOption,
		},
	}

	for _, test := range tests {
		_, err := New(test.cfg, test.g, test.dec, test.opts...)
		if !errors.Is(err, test.want) {
			t.Errorf("unexpected error for test %q\nGot: %v\nWant: %v", test.name, err, test.want)
		}
	}
}

func TestNewLayoutFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Layout = config.LayoutGeneric
	c := newTestContext(t, cfg, 2, 2, &copyDecoder{})
	if _, ok := c.layout.(GenericLayout); !ok {
		t.Errorf("unexpected layout\nGot: %T\nWant: GenericLayout", c.layout)
	}

	c = newTestContext(t, cfg, 2, 2, &copyDecoder{}, WithLayout(H264Layout{}))
	if _, ok := c.layout.(H264Layout); !ok {
		t.Errorf("option did not override layout\nGot: %T\nWant: H264Layout", c.layout)
	}
}

func TestFrameStart(t *testing.T) {
	c := newTestContext(t, testConfig(t), 3, 2, &copyDecoder{})
	c.FrameStart(Frame{Cur: newPicture(3, 2, PictureP)})

	if c.errCount != 3*6 {
		t.Errorf("unexpected error count\nGot: %d\nWant: %d", c.errCount, 18)
	}
	for i, s := range c.status {
		if s != SliceStart|MBError|MBEnd {
			t.Fatalf("unexpected status at %d\nGot: %v\nWant: %v", i, s, SliceStart|MBError|MBEnd)
		}
	}
}

func TestFrameEndUndamaged(t *testing.T) {
	const mbw, mbh = 4, 4
	last := newPicture(mbw, mbh, PictureP)
	fillPicture(last, func(x, y int) byte { return byte(x + 2*y) })
	cur := newPicture(mbw, mbh, PictureP)
	fillPicture(cur, func(x, y int) byte { return byte(3*x + y) })
	for i := range cur.MotionVal[0] {
		cur.MotionVal[0][i] = MV{X: 4, Y: -4}
	}
	want := clonePicture(cur)

	dec := &copyDecoder{refs: [2]*image.YCbCr{last.Image}}
	c := newTestContext(t, testConfig(t), mbw, mbh, dec)
	c.FrameStart(Frame{Cur: cur, Last: last})
	c.AddSlice(0, mbw*mbh-1, MBEnd)
	c.FrameEnd()

	if c.errCount != 0 {
		t.Errorf("unexpected error count\nGot: %d\nWant: 0", c.errCount)
	}
	if len(dec.calls) != 0 {
		t.Errorf("did not expect macroblocks to be decoded, got %d calls", len(dec.calls))
	}
	if !cmp.Equal(cur, want) {
		t.Errorf("undamaged picture was modified:\n%s", cmp.Diff(want, cur))
	}
}

func TestFrameEndCorruptRow(t *testing.T) {
	const mbw, mbh = 4, 4
	v := MV{X: 8, Y: 4}

	for _, deblock := range []bool{false, true} {
		last := newPicture(mbw, mbh, PictureP)
		fillPicture(last, func(x, y int) byte { return byte(4 * x) })

		// The current picture is the previous one moved by v everywhere.
		dec := &copyDecoder{refs: [2]*image.YCbCr{last.Image}}
		cur := newPicture(mbw, mbh, PictureP)
		for y := 0; y < mbh; y++ {
			for x := 0; x < mbw; x++ {
				p := Prediction{X: x, Y: y, Dir: DirForward}
				p.MV[0][0] = v
				dec.DecodeMB(cur.Image, p)
				H264Layout{}.CommitMacroblock(cur.MotionVal[0], NewGeometry(mbw, mbh), x, y, v)
			}
		}
		truth := clonePicture(cur)

		// Row 1 arrives corrupt.
		for x := 0; x < mbw; x++ {
			off := 16*cur.Image.YStride + x*16
			for j := 0; j < 16; j++ {
				for i := 0; i < 16; i++ {
					cur.Image.Y[off+j*cur.Image.YStride+i] = 0
				}
			}
		}
		before := clonePicture(cur)
		dec.calls = nil

		cfg := testConfig(t)
		cfg.Deblock = deblock
		c := newTestContext(t, cfg, mbw, mbh, dec)
		c.FrameStart(Frame{Cur: cur, Last: last})
		c.AddSlice(0, 3, MBEnd)
		c.AddSlice(4, 7, MBError)
		c.AddSlice(8, 15, MBEnd)
		c.FrameEnd()

		if !cur.ConcealmentActive {
			t.Errorf("expected concealment to be active")
		}
		g := c.g
		for y := 0; y < mbh; y++ {
			for x := 0; x < mbw; x++ {
				xy := g.XY(x, y)
				mi := motionIndex(H264Layout{}, g, x, y)
				if y != 1 {
					if !cmp.Equal(mbPixels(cur.Image, x, y), mbPixels(before.Image, x, y)) {
						t.Errorf("deblock=%v: undamaged macroblock (%d, %d) was modified", deblock, x, y)
					}
					if cur.MotionVal[0][mi] != before.MotionVal[0][mi] {
						t.Errorf("deblock=%v: undamaged vector (%d, %d) was modified", deblock, x, y)
					}
					continue
				}
				if c.status[xy]&MBError != MBError {
					t.Errorf("deblock=%v: expected macroblock (%d, %d) fully damaged, got status %v", deblock, x, y, c.status[xy])
				}
				if !cur.MBType[xy].IsInter() {
					t.Errorf("deblock=%v: expected inter type for (%d, %d), got %v", deblock, x, y, cur.MBType[xy])
				}
				for j := 0; j < 4; j++ {
					for i := 0; i < 4; i++ {
						got := cur.MotionVal[0][mi+i+j*4*mbw]
						if got != v {
							t.Errorf("deblock=%v: unexpected vector for (%d, %d)\nGot: %v\nWant: %v", deblock, x, y, got, v)
						}
					}
				}
				if !deblock && !cmp.Equal(mbPixels(cur.Image, x, y), mbPixels(truth.Image, x, y)) {
					t.Errorf("concealed macroblock (%d, %d) does not match source", x, y)
				}
			}
		}
	}
}

func TestFrameEndNoReferences(t *testing.T) {
	const mbw, mbh = 4, 4
	cur := newPicture(mbw, mbh, PictureP)
	fillPicture(cur, func(x, y int) byte { return byte(x ^ y) })

	c := newTestContext(t, testConfig(t), mbw, mbh, &copyDecoder{})
	c.FrameStart(Frame{Cur: cur})
	c.AddSlice(0, 7, MBEnd)
	c.FrameEnd()

	for i := 0; i < c.g.MBNum; i++ {
		xy := c.g.MBIndex2XY[i]
		if !cur.MBType[xy].IsIntra() {
			t.Errorf("expected intra macroblock at %d, got type %v", xy, cur.MBType[xy])
		}
	}
}

func TestFrameEndDropsMismatchedReference(t *testing.T) {
	cur := newPicture(4, 4, PictureP)
	last := newPicture(2, 2, PictureP)

	dec := &copyDecoder{refs: [2]*image.YCbCr{last.Image}}
	c := newTestContext(t, testConfig(t), 4, 4, dec)
	c.FrameStart(Frame{Cur: cur, Last: last})
	c.FrameEnd()

	for i := 0; i < c.g.MBNum; i++ {
		xy := c.g.MBIndex2XY[i]
		if !cur.MBType[xy].IsIntra() {
			t.Fatalf("expected unusable reference to be ignored, macroblock %d has type %v", xy, cur.MBType[xy])
		}
	}
	if len(dec.calls) != 0 {
		t.Errorf("did not expect motion compensation, got %d calls", len(dec.calls))
	}
}

func TestFrameEndNoop(t *testing.T) {
	const mbw, mbh = 4, 4
	tests := []struct {
		name  string
		cfg   func(*config.Config)
		frame func(*Frame)
		slice func(*Context)
	}{
		{
			name: "disabled",
			cfg:  func(c *config.Config) { c.Conceal = false },
		},
		{
			name:  "hardware accelerated",
			frame: func(f *Frame) { f.HWAccel = true },
		},
		{
			name:  "field picture",
			frame: func(f *Frame) { f.Cur.Field = true },
		},
		{
			name:  "only skipped rows damaged",
			cfg:   func(c *config.Config) { c.SkipTop = 1 },
			slice: func(c *Context) { c.AddSlice(mbw, mbw*mbh-1, MBEnd) },
		},
	}

	for _, test := range tests {
		last := newPicture(mbw, mbh, PictureP)
		fillPicture(last, func(x, y int) byte { return byte(7 * x) })
		cur := newPicture(mbw, mbh, PictureP)
		fillPicture(cur, func(x, y int) byte { return byte(y) })
		want := clonePicture(cur)

		cfg := testConfig(t)
		if test.cfg != nil {
			test.cfg(&cfg)
		}
		f := Frame{Cur: cur, Last: last}
		if test.frame != nil {
			test.frame(&f)
		}
		want.Field = cur.Field

		dec := &copyDecoder{refs: [2]*image.YCbCr{last.Image}}
		c := newTestContext(t, cfg, mbw, mbh, dec)
		c.FrameStart(f)
		if test.slice != nil {
			test.slice(c)
		}
		c.FrameEnd()

		if len(dec.calls) != 0 {
			t.Errorf("%s: did not expect macroblocks to be decoded, got %d calls", test.name, len(dec.calls))
		}
		if !cmp.Equal(cur, want) {
			t.Errorf("%s: picture was modified:\n%s", test.name, cmp.Diff(want, cur))
		}
	}
}

func TestFrameEndHWIDCT(t *testing.T) {
	const mbw, mbh = 4, 4
	for _, hwidct := range []bool{false, true} {
		cur := newPicture(mbw, mbh, PictureP)
		fillPicture(cur, func(x, y int) byte { return byte(x ^ y) })
		before := clonePicture(cur)

		cfg := testConfig(t)
		cfg.Deblock = false
		c := newTestContext(t, cfg, mbw, mbh, &copyDecoder{})
		c.FrameStart(Frame{Cur: cur, HWIDCT: hwidct})
		c.AddSlice(0, 7, MBEnd)
		c.FrameEnd()

		if !cur.ConcealmentActive {
			t.Errorf("hwidct=%v: expected concealment to be active", hwidct)
		}
		same := cmp.Equal(cur.Image.Y, before.Image.Y) &&
			cmp.Equal(cur.Image.Cb, before.Image.Cb) &&
			cmp.Equal(cur.Image.Cr, before.Image.Cr)
		if !hwidct {
			if same {
				t.Errorf("expected damaged intra macroblocks to be rendered from DC")
			}
			continue
		}
		if !same {
			t.Errorf("samples modified without DC reconstruction")
		}
		for _, p := range []Plane{PlaneY, PlaneCb, PlaneCr} {
			for i, v := range c.DC(p) {
				if v != 1024 {
					t.Fatalf("DC plane %d modified at %d: %d", p, i, v)
				}
			}
		}
	}
}

func TestFrameEndAllocatesMissingVectors(t *testing.T) {
	last := newPicture(2, 2, PictureP)
	cur := newPicture(2, 2, PictureP)
	cur.MotionVal = [2][]MV{}
	cur.RefIndex = [2][]int8{}

	dec := &copyDecoder{refs: [2]*image.YCbCr{last.Image}}
	c := newTestContext(t, testConfig(t), 2, 2, dec)
	c.FrameStart(Frame{Cur: cur, Last: last})
	c.FrameEnd()

	if !cur.ConcealmentActive {
		t.Errorf("expected concealment to be active")
	}
	if cur.MotionVal[0] != nil || cur.RefIndex[0] != nil {
		t.Errorf("expected vectors allocated for concealment to be released")
	}
}

func TestFrameEndCleansTables(t *testing.T) {
	const mbw, mbh = 2, 2
	g := NewGeometry(mbw, mbh)
	last := newPicture(mbw, mbh, PictureP)
	cur := newPicture(mbw, mbh, PictureP)
	skip := make([]bool, g.tableSize())
	intra := make([]bool, g.tableSize())
	for i := range skip {
		skip[i] = true
	}

	dec := &copyDecoder{refs: [2]*image.YCbCr{last.Image}}
	c := newTestContext(t, testConfig(t), mbw, mbh, dec)
	c.FrameStart(Frame{Cur: cur, Last: last, SkipTable: skip, IntraTable: intra})
	c.AddSlice(0, 1, MBEnd)
	c.FrameEnd()

	for i := 0; i < g.MBNum; i++ {
		xy := g.MBIndex2XY[i]
		if !intra[xy] {
			t.Errorf("expected intra table set at %d", xy)
		}
		damaged := c.status[xy]&MBError != 0
		if skip[xy] == damaged {
			t.Errorf("unexpected skip flag at %d\nGot: %v\nWant: %v", xy, skip[xy], !damaged)
		}
	}
}

func TestRedecodeAC(t *testing.T) {
	const mbw, mbh = 2, 1
	last := newPicture(mbw, mbh, PictureP)
	cur := newPicture(mbw, mbh, PictureP)
	dec := &copyDecoder{refs: [2]*image.YCbCr{last.Image}}
	c := newTestContext(t, testConfig(t), mbw, mbh, dec)
	c.FrameStart(Frame{Cur: cur, Last: last})
	c.prepare()

	g := c.g
	want := [4]MV{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	for n, v := range want {
		cur.MotionVal[0][blockIndex(c.layout, g, 1, 0, n)] = v
	}
	cur.MBType[g.XY(1, 0)] = MB8x8 | MBL0
	c.status[g.XY(0, 0)] = 0
	c.status[g.XY(1, 0)] = ACError

	c.redecodeAC()

	if len(dec.calls) != 1 {
		t.Fatalf("unexpected number of decode calls\nGot: %d\nWant: 1", len(dec.calls))
	}
	p := dec.calls[0]
	if p.X != 1 || p.Y != 0 || p.Type != MV8x8 || p.Dir != DirForward {
		t.Errorf("unexpected prediction: %+v", p)
	}
	if p.MV[0] != want {
		t.Errorf("unexpected vectors\nGot: %v\nWant: %v", p.MV[0], want)
	}
}
