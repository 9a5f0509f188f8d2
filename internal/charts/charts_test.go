package charts

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"ourfish-bknd/internal/aggregate"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestRenderAllCharts(t *testing.T) {
	pct := 40.0
	avg := 21.5
	res := aggregate.Result{
		Catch: []aggregate.CatchMonth{{Month: "2021-02", WeightMT: 0.4}, {Month: "2021-03", WeightMT: 0.7}},
		CPUEValue: []aggregate.CPUEMonth{
			{Month: "2021-02", CPUEKgBoat: 12, AvgCatchValueUSD: 30, Boats: 3},
		},
		Length: []aggregate.LengthMonth{
			{Month: "2021-02", AvgLengthCm: &avg, PercentMature: &pct},
			{Month: "2021-03", AvgLengthCm: &avg},
		},
		Composition: []aggregate.SpeciesShare{
			{SpeciesScientific: "Siganus fuscescens", SpeciesLocal: "danggit", WeightMT: 0.5},
			{SpeciesScientific: "Lutjanus sp.", WeightMT: 0.2},
		},
	}

	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, name, res); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
				t.Errorf("output is not a PNG")
			}
		})
	}
}

func TestRenderEmptyResult(t *testing.T) {
	for _, name := range Names {
		var buf bytes.Buffer
		if err := Render(&buf, name, aggregate.Result{}); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestRenderUnknownChart(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, "pie", aggregate.Result{}); !errors.Is(err, ErrUnknownChart) {
		t.Errorf("err = %v", err)
	}
}

func TestCPUEPanelsScaleIndependently(t *testing.T) {
	rows := []aggregate.CPUEMonth{
		{Month: "2021-02", CPUEKgBoat: 12, AvgCatchValueUSD: 300},
		{Month: "2021-03", CPUEKgBoat: 14, AvgCatchValueUSD: 500},
	}
	panels, err := cpuePanels(rows)
	if err != nil {
		t.Fatalf("cpuePanels: %v", err)
	}
	if len(panels) != 2 {
		t.Fatalf("panels = %d, want 2", len(panels))
	}
	if got := panels[0].Y.Max; got != 14 {
		t.Errorf("cpue axis max = %v, want 14", got)
	}
	if got := panels[1].Y.Max; got != 500 {
		t.Errorf("value axis max = %v, want 500", got)
	}
}

func TestStackedChartIsTaller(t *testing.T) {
	res := aggregate.Result{
		Catch:     []aggregate.CatchMonth{{Month: "2021-02", WeightMT: 0.4}},
		CPUEValue: []aggregate.CPUEMonth{{Month: "2021-02", CPUEKgBoat: 12, AvgCatchValueUSD: 300}},
	}
	heights := map[string]int{}
	for _, name := range []string{Catch, CPUEValue} {
		var buf bytes.Buffer
		if err := Render(&buf, name, res); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		cfg, err := png.DecodeConfig(&buf)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		heights[name] = cfg.Height
	}
	if heights[CPUEValue] <= heights[Catch] {
		t.Errorf("stacked height %d not above single %d", heights[CPUEValue], heights[Catch])
	}
}
