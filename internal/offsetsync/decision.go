// Package offsetsync keeps the temperature offset of Tadoº X measuring
// devices aligned with an external reference thermometer in the same room.
//
// A radiator valve measures the temperature right next to the radiator, which
// typically runs warmer than the room. Applying an offset of (reference
// temperature - valve temperature) makes the valve regulate on the actual
// room temperature.
package offsetsync

import "math"

// MaxSyncOffset limits offsets computed by the decision engine. The hardware
// accepts up to ±9.9 °C, but an automatically derived correction larger than
// this almost certainly means a sensor is misplaced or broken.
const MaxSyncOffset = 3.0

// A Decision is the outcome of evaluating one device against its reference
// thermometer. If NeedsUpdate is true, Offset should be written to the device.
type Decision struct {
	SerialNumber string
	Offset       float64
	NeedsUpdate  bool
}

// Decide determines whether a device's temperature offset needs to be
// updated. reference is the external thermometer's reading; measured is the
// device's raw, uncorrected measurement (using the corrected value would fold
// the current offset back into itself). If either reading is unavailable
// (nil), no update is issued.
//
// The proposed offset is rounded to 0.1 °C, clamped to ±MaxSyncOffset, and
// only applied when it differs from the current offset by more than
// hysteresis, so sensor noise doesn't cause a remote write on every cycle.
func Decide(serialNumber string, reference, measured *float64, currentOffset, hysteresis float64) Decision {
	decision := Decision{SerialNumber: serialNumber, Offset: currentOffset}
	if reference == nil || measured == nil {
		return decision
	}

	offset := math.Round((*reference-*measured)*10) / 10
	offset = math.Max(-MaxSyncOffset, math.Min(MaxSyncOffset, offset))

	decision.Offset = offset
	decision.NeedsUpdate = math.Abs(offset-currentOffset) > hysteresis
	return decision
}
