// Package curve builds the gamma ramps used for the night light effect.
package curve

import "math"

// Size is the number of entries per channel in a hardware gamma ramp.
const Size = 256

// Ramp is a 3×256 array of uint16 values (R, G, B channels). The layout
// matches what SetDeviceGammaRamp expects, so a *Ramp can be handed to the
// OS directly.
type Ramp [3][Size]uint16

const (
	gamma = 2.2

	greenShift = 0.3
	blueShift  = 0.6

	// Floors keep the ramp from collapsing toward black at high warmth.
	greenFloor = 0.4
	blueFloor  = 0.2
)

// ClampTemperature limits t to [0, 1]. NaN maps to 0 (no shift).
func ClampTemperature(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Factors returns the per-channel scale factors for a warmth of t.
// At t=0 all three are 1.
func Factors(t float64) (r, g, b float64) {
	t = ClampTemperature(t)
	r = 1.0
	g = math.Max(greenFloor, 1.0-t*greenShift)
	b = math.Max(blueFloor, 1.0-t*blueShift)
	return
}

// Generate returns the gamma-corrected ramp for temperature t, where 0 is
// neutral and 1 is the warmest shift. Out-of-range input is clamped.
func Generate(t float64) Ramp {
	r, g, b := Factors(t)
	factors := [3]float64{r, g, b}

	var ramp Ramp
	for i := range Size {
		linear := float64(i) / float64(Size-1)
		for ch, f := range factors {
			ramp[ch][i] = channelValue(linear * f)
		}
	}
	return ramp
}

func channelValue(x float64) uint16 {
	v := math.Floor(math.Pow(x, 1/gamma)*65535 + 0.5)
	return uint16(math.Min(65535, v))
}

// Linear returns the identity ramp (value = i*256) used when the hardware
// ramp can't be read.
func Linear() Ramp {
	var ramp Ramp
	for i := range Size {
		v := uint16(i) << 8
		ramp[0][i] = v
		ramp[1][i] = v
		ramp[2][i] = v
	}
	return ramp
}
