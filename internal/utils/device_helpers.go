package utils

import "math"

// BatteryPercentage converts reported battery voltage to a percentage
// using piecewise linear interpolation over measured discharge data.
func BatteryPercentage(voltage float64) int {
	if voltage <= 3.1 {
		return 1
	}
	if voltage >= 4.06 {
		return 100
	}

	points := [][2]float64{
		{3.1, 1},
		{3.65, 54},
		{3.70, 58},
		{3.75, 62},
		{3.80, 66},
		{3.85, 70},
		{3.88, 73},
		{3.90, 75},
		{3.92, 76},
		{3.98, 81},
		{4.00, 90},
		{4.02, 95},
		{4.05, 95},
		{4.06, 100},
	}

	for i := 0; i < len(points)-1; i++ {
		v1, p1 := points[i][0], points[i][1]
		v2, p2 := points[i+1][0], points[i+1][1]
		if voltage >= v1 && voltage <= v2 {
			ratio := (voltage - v1) / (v2 - v1)
			return int(math.Round(p1 + ratio*(p2-p1)))
		}
	}

	return 1
}

// WiFiQuality summarizes RSSI as a label and a 1-5 strength.
type WiFiQuality struct {
	Quality  string `json:"quality"`
	Strength int    `json:"strength"`
}

// SignalQuality converts RSSI in dBm to a quality bucket.
func SignalQuality(rssi int) WiFiQuality {
	switch {
	case rssi > -50:
		return WiFiQuality{Quality: "Excellent", Strength: 5}
	case rssi > -60:
		return WiFiQuality{Quality: "Good", Strength: 4}
	case rssi > -70:
		return WiFiQuality{Quality: "Fair", Strength: 3}
	case rssi > -80:
		return WiFiQuality{Quality: "Poor", Strength: 2}
	default:
		return WiFiQuality{Quality: "Very Poor", Strength: 1}
	}
}
