/*
DESCRIPTION
  mbtype.go provides macroblock type flags.

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

// MBType describes the prediction mode and partitioning of a macroblock. A
// zero MBType is an unknown type.
type MBType uint16

// Macroblock type flags.
const (
	MBIntra4x4 MBType = 1 << iota
	MBIntra16x16
	MBIntraPCM
	MB16x16
	MB16x8
	MB8x16
	MB8x8
	MBSkip
	MBL0
	MBL1
)

const (
	intraMask = MBIntra4x4 | MBIntra16x16 | MBIntraPCM
	interMask = MB16x16 | MB16x8 | MB8x16 | MB8x8
)

// IsIntra reports whether t is spatially predicted.
func (t MBType) IsIntra() bool { return t&intraMask != 0 }

// IsInter reports whether t is motion compensated. An unknown type is
// neither intra nor inter.
func (t MBType) IsInter() bool { return t&interMask != 0 }

// Is8x8 reports whether t carries one motion vector per 8x8 block.
func (t MBType) Is8x8() bool { return t&MB8x8 != 0 }
