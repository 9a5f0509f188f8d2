package spatial

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon *float64
		want     bool
	}{
		{"ok", ptr(10.3), ptr(123.9), true},
		{"missing lat", nil, ptr(123.9), false},
		{"zero placeholder", ptr(0), ptr(123.9), false},
		{"out of range", ptr(95), ptr(10), false},
		{"nan", ptr(math.NaN()), ptr(10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCoordinate(tt.lat, tt.lon); got != tt.want {
				t.Errorf("ValidCoordinate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFitView(t *testing.T) {
	if v := FitView(nil); v != DefaultView {
		t.Errorf("FitView(nil) = %+v", v)
	}

	single := FitView([]Point{{Lat: 10, Lon: 120}})
	if single.Zoom != maxZoom || math.Abs(single.CenterLat-10) > 1e-9 || math.Abs(single.CenterLon-120) > 1e-9 {
		t.Errorf("single point view = %+v", single)
	}

	v := FitView([]Point{{Lat: 10, Lon: 120}, {Lat: 12, Lon: 124}})
	if math.Abs(v.CenterLat-11) > 1e-6 || math.Abs(v.CenterLon-122) > 1e-6 {
		t.Errorf("center = %v,%v", v.CenterLat, v.CenterLon)
	}
	// widest side is 4 degrees: floor(log2(90)) = 6
	if v.Zoom != 6 {
		t.Errorf("zoom = %v, want 6", v.Zoom)
	}
}

func TestFocusView(t *testing.T) {
	v, ok := FocusView(9.7, 123.5)
	if !ok || v.Zoom != FocusZoom || v.CenterLat != 9.7 {
		t.Errorf("FocusView = %+v, %v", v, ok)
	}
	if _, ok := FocusView(0, 0); ok {
		t.Errorf("FocusView accepted the 0,0 placeholder")
	}
}
