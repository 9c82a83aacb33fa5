/*
DESCRIPTION
  yuv.go provides reading and writing of raw planar 4:2:0 (I420) video and
  peak signal to noise ratio measurement.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package yuv provides raw I420 frame I/O and quality measurement.
package yuv

import (
	"image"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Errors returned by this package.
var (
	ErrBadDimensions = errors.New("frame dimensions must be positive and even")
	ErrSizeMismatch  = errors.New("frames differ in size")
)

// FrameSize returns the number of bytes in a w by h I420 frame.
func FrameSize(w, h int) int { return w*h + 2*(w/2)*(h/2) }

// Reader reads consecutive I420 frames.
type Reader struct {
	r    io.Reader
	w, h int
	buf  []byte
}

// NewReader returns a Reader of w by h frames from r.
func NewReader(r io.Reader, w, h int) (*Reader, error) {
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return nil, ErrBadDimensions
	}
	return &Reader{r: r, w: w, h: h, buf: make([]byte, FrameSize(w, h))}, nil
}

// Read returns the next frame. It returns io.EOF when no further frame
// starts, and an error wrapping io.ErrUnexpectedEOF if the input ends part
// way through a frame.
func (r *Reader) Read() (*image.YCbCr, error) {
	_, err := io.ReadFull(r.r, r.buf)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read frame")
	}

	img := image.NewYCbCr(image.Rect(0, 0, r.w, r.h), image.YCbCrSubsampleRatio420)
	n := copy(img.Y, r.buf)
	n += copy(img.Cb, r.buf[n:])
	copy(img.Cr, r.buf[n:])
	return img, nil
}

// Writer writes I420 frames.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Write writes img as a single I420 frame. img must use 4:2:0 subsampling.
func (w *Writer) Write(img *image.YCbCr) error {
	if img.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return errors.Errorf("unsupported subsample ratio %v", img.SubsampleRatio)
	}
	dx, dy := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < dy; y++ {
		off := y * img.YStride
		if _, err := w.w.Write(img.Y[off : off+dx]); err != nil {
			return errors.Wrap(err, "could not write luma")
		}
	}
	for _, p := range [2][]byte{img.Cb, img.Cr} {
		for y := 0; y < (dy+1)/2; y++ {
			off := y * img.CStride
			if _, err := w.w.Write(p[off : off+(dx+1)/2]); err != nil {
				return errors.Wrap(err, "could not write chroma")
			}
		}
	}
	return nil
}

// PSNR returns the luma peak signal to noise ratio of b against reference a
// in decibels. Identical frames give +Inf.
func PSNR(a, b *image.YCbCr) (float64, error) {
	dx, dy := a.Rect.Dx(), a.Rect.Dy()
	if dx != b.Rect.Dx() || dy != b.Rect.Dy() {
		return 0, ErrSizeMismatch
	}
	var sse float64
	for y := 0; y < dy; y++ {
		ra := a.Y[y*a.YStride : y*a.YStride+dx]
		rb := b.Y[y*b.YStride : y*b.YStride+dx]
		for x := range ra {
			d := float64(int(ra[x]) - int(rb[x]))
			sse += d * d
		}
	}
	if sse == 0 {
		return math.Inf(1), nil
	}
	mse := sse / float64(dx*dy)
	return 10 * math.Log10(255*255/mse), nil
}

// Clone returns a deep copy of img.
func Clone(img *image.YCbCr) *image.YCbCr {
	c := *img
	c.Y = append([]byte(nil), img.Y...)
	c.Cb = append([]byte(nil), img.Cb...)
	c.Cr = append([]byte(nil), img.Cr...)
	return &c
}
