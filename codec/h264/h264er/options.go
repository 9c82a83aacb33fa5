/*
DESCRIPTION
  options.go provides option functions that can be passed to New for
  concealment context configuration. These options include the motion vector
  layout, the SAD primitive, cross frame progress waiting and slice threading.

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

import "errors"

var (
	ErrNoDecoder   = errors.New("no macroblock decoder")
	ErrBadGeometry = errors.New("empty macroblock geometry")
	ErrNilOption   = errors.New("nil option value")
)

// Option configures a Context.
type Option func(*Context) error

// WithLayout is an option that can be passed to New to select the motion
// vector layout. The default is H264Layout.
func WithLayout(l Layout) Option {
	return func(c *Context) error {
		if l == nil {
			return ErrNilOption
		}
		c.layout = l
		c.log.Debug("configured motion vector layout", "layout", l)
		return nil
	}
}

// WithSAD is an option that can be passed to New to replace the sum of
// absolute differences primitive.
func WithSAD(f SADFunc) Option {
	return func(c *Context) error {
		if f == nil {
			return ErrNilOption
		}
		c.sad = f
		return nil
	}
}

// WithProgress is an option that can be passed to New to provide a waiter
// that is called before motion data of a reference picture is read.
func WithProgress(p ProgressWaiter) Option {
	return func(c *Context) error {
		if p == nil {
			return ErrNilOption
		}
		c.progress = p
		return nil
	}
}

// SliceThreads is an option that can be passed to New to declare that slices
// of a frame are decoded concurrently. Checks that rely on the previous
// macroblock in scan order, and distance based error marking, are disabled.
func SliceThreads(on bool) Option {
	return func(c *Context) error {
		c.sliceThreads = on
		c.log.Debug("configured slice threading", "enabled", on)
		return nil
	}
}
