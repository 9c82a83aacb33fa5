/*
DESCRIPTION
  status.go defines the per macroblock damage status bits recorded while the
  slices of a frame are decoded.

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
	"fmt"
	"strings"
)

// Status is the damage state of a single macroblock. Each of the three data
// kinds (AC coefficients, DC coefficients and motion vectors) has an error
// bit and an end bit; the end bit marks the macroblock at which a clean run
// of that kind finished.
type Status uint8

// Status bits.
const (
	SliceStart Status = 1 << iota
	ACError
	DCError
	MVError
	ACEnd
	DCEnd
	MVEnd

	MBError = ACError | DCError | MVError
	MBEnd   = ACEnd | DCEnd | MVEnd
)

// untouched is the state of a macroblock no slice has reported on.
const untouched = SliceStart | MBError | MBEnd

// kind selects one of the AC, DC or MV bit pairs.
type kind uint8

const (
	kindAC kind = iota
	kindDC
	kindMV
)

var kinds = [...]kind{kindAC, kindDC, kindMV}

func (k kind) errorBit() Status { return ACError << k }
func (k kind) endBit() Status { return ACEnd << k }

func (k kind) String() string {
	switch k {
	case kindAC:
		return "AC"
	case kindDC:
		return "DC"
	case kindMV:
		return "MV"
	}
	return "unknown"
}

func (s Status) String() string { return fmt.Sprintf("%02X", uint8(s)) }

// dumpStatus writes the damage map to the debug log one macroblock row at a
// time.
func (c *Context) dumpStatus() {
	var sb strings.Builder
	for y := 0; y < c.g.MBHeight; y++ {
		sb.Reset()
		for x := 0; x < c.g.MBWidth; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(c.status[c.g.XY(x, y)].String())
		}
		c.log.Debug("damage map", "row", y, "status", sb.String())
	}
}
