package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"ourfish-bknd/internal/aggregate"
)

var ErrUnknownChart = errors.New("unknown chart")

// Chart names accepted by Render.
const (
	Catch       = "catch"
	CPUEValue   = "cpue-value"
	Length      = "length"
	Composition = "composition"
)

// Names lists every chart in display order.
var Names = []string{Catch, CPUEValue, Length, Composition}

var (
	rareBlue = color.RGBA{R: 0x00, G: 0x5B, B: 0xBB, A: 0xFF}
	rareRed  = color.RGBA{R: 0xAA, G: 0x19, B: 0x48, A: 0xFF}
	paper    = color.RGBA{R: 0xE5, G: 0xF7, B: 0xFA, A: 0xFF}
)

const (
	width       = 8 * vg.Inch
	height      = 4 * vg.Inch
	panelHeight = 3 * vg.Inch
)

// Render draws the named chart for res as a PNG. Charts of two series in
// different units are drawn as two stacked panels sharing the month axis,
// each with its own y axis.
func Render(w io.Writer, name string, res aggregate.Result) error {
	var (
		panels []*plot.Plot
		err    error
	)
	switch name {
	case Catch:
		panels, err = single(catchPlot(res.Catch))
	case CPUEValue:
		panels, err = cpuePanels(res.CPUEValue)
	case Length:
		panels, err = lengthPanels(res.Length)
	case Composition:
		panels, err = single(compositionPlot(res.Composition))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
	if err != nil {
		return fmt.Errorf("build %s chart: %w", name, err)
	}
	if err := writePNG(w, panels); err != nil {
		return fmt.Errorf("render %s chart: %w", name, err)
	}
	return nil
}

func single(p *plot.Plot, err error) ([]*plot.Plot, error) {
	if err != nil {
		return nil, err
	}
	return []*plot.Plot{p}, nil
}

func writePNG(w io.Writer, panels []*plot.Plot) error {
	h := height
	if len(panels) > 1 {
		h = vg.Length(len(panels)) * panelHeight
	}
	img := vgimg.New(width, h)
	dc := draw.New(img)

	rows := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		rows[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{Rows: len(panels), Cols: 1, PadY: vg.Points(6)}
	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}

	_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.BackgroundColor = paper
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func catchPlot(rows []aggregate.CatchMonth) (*plot.Plot, error) {
	p := newPlot("Total Catch per Month (metric tons)")
	if len(rows) == 0 {
		return p, nil
	}

	values := make(plotter.Values, len(rows))
	months := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.WeightMT
		months[i] = r.Month
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = rareBlue
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(months...)
	return p, nil
}

// cpuePanels puts CPUE above catch value, each on its own y axis.
func cpuePanels(rows []aggregate.CPUEMonth) ([]*plot.Plot, error) {
	top := newPlot("CPUE and Catch Value per Boat")
	top.Y.Label.Text = "kg/boat"
	bottom := newPlot("")
	bottom.Y.Label.Text = "USD/boat"
	if len(rows) == 0 {
		return []*plot.Plot{top, bottom}, nil
	}

	cpue := make(plotter.XYs, len(rows))
	value := make(plotter.XYs, len(rows))
	months := make([]string, len(rows))
	for i, r := range rows {
		cpue[i] = plotter.XY{X: float64(i), Y: r.CPUEKgBoat}
		value[i] = plotter.XY{X: float64(i), Y: r.AvgCatchValueUSD}
		months[i] = r.Month
	}
	if err := addLine(top, cpue, "CPUE (kg/boat)", rareBlue); err != nil {
		return nil, err
	}
	if err := addLine(bottom, value, "Catch Value (USD/boat)", rareRed); err != nil {
		return nil, err
	}
	top.NominalX(months...)
	bottom.NominalX(months...)
	return []*plot.Plot{top, bottom}, nil
}

func lengthPanels(rows []aggregate.LengthMonth) ([]*plot.Plot, error) {
	top := newPlot("Average Length and % Mature")
	top.Y.Label.Text = "cm"
	bottom := newPlot("")
	bottom.Y.Label.Text = "% mature"
	if len(rows) == 0 {
		return []*plot.Plot{top, bottom}, nil
	}

	var avg, mature plotter.XYs
	months := make([]string, len(rows))
	for i, r := range rows {
		if r.AvgLengthCm != nil {
			avg = append(avg, plotter.XY{X: float64(i), Y: *r.AvgLengthCm})
		}
		if r.PercentMature != nil {
			mature = append(mature, plotter.XY{X: float64(i), Y: *r.PercentMature})
		}
		months[i] = r.Month
	}
	if len(avg) > 0 {
		if err := addLine(top, avg, "Average length (cm)", rareBlue); err != nil {
			return nil, err
		}
	}
	if len(mature) > 0 {
		if err := addLine(bottom, mature, "% Mature", rareRed); err != nil {
			return nil, err
		}
	}
	top.NominalX(months...)
	bottom.NominalX(months...)
	return []*plot.Plot{top, bottom}, nil
}

func compositionPlot(rows []aggregate.SpeciesShare) (*plot.Plot, error) {
	p := newPlot("Catch Composition (metric tons)")
	if len(rows) == 0 {
		return p, nil
	}

	// heaviest species on top
	n := len(rows)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, r := range rows {
		values[n-1-i] = r.WeightMT
		names[n-1-i] = label(r)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = rareBlue
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalY(names...)
	p.Y.Tick.Label.XAlign = draw.XRight
	return p, nil
}

func label(s aggregate.SpeciesShare) string {
	if s.SpeciesLocal == "" {
		return s.SpeciesScientific
	}
	return s.SpeciesLocal
}

func addLine(p *plot.Plot, xys plotter.XYs, name string, c color.Color) error {
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(2)
	points.Color = c
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points)
	p.Legend.Add(name, line, points)
	return nil
}
