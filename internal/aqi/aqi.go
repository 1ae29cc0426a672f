// Package aqi maps PM2.5 concentrations to the U.S. EPA Air Quality Index.
package aqi

import "math"

// Category is one of the six standard AQI bands.
type Category int

const (
	Good Category = iota
	Moderate
	UnhealthySensitive
	Unhealthy
	VeryUnhealthy
	Hazardous
)

func (c Category) String() string {
	switch c {
	case Good:
		return "Good"
	case Moderate:
		return "Moderate"
	case UnhealthySensitive:
		return "Unhealthy for Sensitive Groups"
	case Unhealthy:
		return "Unhealthy"
	case VeryUnhealthy:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

// Result is a computed index value with its category color.
type Result struct {
	Index    int
	Color    int // 24-bit packed RGB
	Category Category
}

// breakpoint is one row of the concentration/index mapping table.
type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

// 2012 EPA PM2.5 breakpoints (24-hour concentration, µg/m³):
//
//	Good                        0 -  50    0.0 -  12.0
//	Moderate                   51 - 100   12.1 -  35.4
//	Unhealthy for Sensitive   101 - 150   35.5 -  55.4
//	Unhealthy                 151 - 200   55.5 - 150.4
//	Very Unhealthy            201 - 300  150.5 - 250.4
//	Hazardous                 301 - 400  250.5 - 350.4
//	Hazardous                 401 - 500  350.5 - 500.4
//
// The last row is open-ended: concentrations above 500.4 keep following its
// slope rather than saturating at 500.
var pm25Breakpoints = []breakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 350.4, 301, 400},
	{350.5, 500.4, 401, 500},
}

// Packed RGB colors for the six bands.
const (
	colorGreen  = 0x008000
	colorYellow = 0xFFFF00
	colorOrange = 0xFF8C00
	colorRed    = 0xFF0000
	colorPurple = 0x800080
	colorMaroon = 0x800000
)

// ClassifyPM25 converts a PM2.5 concentration to an AQI result. The EPA
// procedure truncates the concentration to one decimal place before the
// piecewise-linear interpolation; the interpolated value is rounded to the
// nearest integer (half away from zero). A negative concentration means the
// sensor reported garbage, so ok is false rather than a clamped index.
func ClassifyPM25(concentration float64) (Result, bool) {
	if concentration < 0 || math.IsNaN(concentration) {
		return Result{}, false
	}

	x := math.Trunc(concentration*10) / 10

	row := pm25Breakpoints[len(pm25Breakpoints)-1]
	for _, bp := range pm25Breakpoints {
		if x <= bp.cHigh {
			row = bp
			break
		}
	}

	idx := int(math.Round((row.iHigh-row.iLow)/(row.cHigh-row.cLow)*(x-row.cLow) + row.iLow))
	cat := CategoryForIndex(idx)
	return Result{Index: idx, Color: ColorForIndex(idx), Category: cat}, true
}

// CategoryForIndex returns the band a computed index falls into.
func CategoryForIndex(index int) Category {
	switch {
	case index <= 50:
		return Good
	case index <= 100:
		return Moderate
	case index <= 150:
		return UnhealthySensitive
	case index <= 200:
		return Unhealthy
	case index <= 300:
		return VeryUnhealthy
	default:
		return Hazardous
	}
}

// ColorForIndex returns the packed RGB color for a computed index.
func ColorForIndex(index int) int {
	switch CategoryForIndex(index) {
	case Good:
		return colorGreen
	case Moderate:
		return colorYellow
	case UnhealthySensitive:
		return colorOrange
	case Unhealthy:
		return colorRed
	case VeryUnhealthy:
		return colorPurple
	default:
		return colorMaroon
	}
}
