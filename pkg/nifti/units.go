package nifti

import "fmt"

// Unit is a NIfTI-1 measurement unit code as packed into xyzt_units.
type Unit uint8

const (
	UnitUnknown     Unit = 0
	UnitMeter       Unit = 1
	UnitMillimeter  Unit = 2
	UnitMicron      Unit = 3
	UnitSecond      Unit = 8
	UnitMillisecond Unit = 16
	UnitMicrosecond Unit = 24
	UnitHertz       Unit = 32
	UnitPPM         Unit = 40
	UnitRadPerSec   Unit = 48
)

const (
	spatialUnitMask  = 0x07
	temporalUnitMask = 0x38
)

func (u Unit) String() string {
	switch u {
	case UnitUnknown:
		return "unknown"
	case UnitMeter:
		return "m"
	case UnitMillimeter:
		return "mm"
	case UnitMicron:
		return "um"
	case UnitSecond:
		return "s"
	case UnitMillisecond:
		return "ms"
	case UnitMicrosecond:
		return "us"
	case UnitHertz:
		return "Hz"
	case UnitPPM:
		return "ppm"
	case UnitRadPerSec:
		return "rad/s"
	}
	return fmt.Sprintf("Unit(%d)", uint8(u))
}

// SpatialUnit returns the unit of pixdim[1..3], taken from the low three bits.
func (h *Header) SpatialUnit() Unit {
	return Unit(h.XYZTUnits & spatialUnitMask)
}

// TemporalUnit returns the unit of pixdim[4], taken from bits 3..5.
func (h *Header) TemporalUnit() Unit {
	return Unit(h.XYZTUnits & temporalUnitMask)
}
