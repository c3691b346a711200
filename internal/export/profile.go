package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// OutlineLayer holds the overall side outline of the cabinet box.
const OutlineLayer = "OUTLINE"

var layerColors = map[string]color.ColorNumber{
	OutlineLayer: color.White,
	"FACE_FRAME": color.Magenta,
	"DRAWER":     color.Green,
	"CLEARANCE":  color.Yellow,
	"BACK_PANEL": color.Blue,
	"BACK_GAP":   color.Red,
}

// ExportSideProfile writes a DXF side view of a calculated cabinet in
// inches. X runs from the front face (0) to the wall, Y from the bottom of
// the box up to the box height. Each non-zero depth term is drawn as a
// rectangle on its own layer.
func ExportSideProfile(path string, c model.Cabinet) error {
	if !c.Calculated() {
		return fmt.Errorf("cabinet %s has not been calculated", c.CabinetNumber)
	}
	b := c.Breakdown
	height := b.BoxHeight
	if height <= 0 {
		height = c.HeightInches
	}
	if b.TotalDepth <= 0 || height <= 0 {
		return fmt.Errorf("cabinet %s has no drawable depth", c.CabinetNumber)
	}

	d := dxf.NewDrawing()
	if _, err := d.AddLayer(OutlineLayer, layerColors[OutlineLayer], dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("failed to add layer %s: %w", OutlineLayer, err)
	}
	if err := rectangle(d, 0, 0, b.TotalDepth, height); err != nil {
		return err
	}

	x := 0.0
	for _, term := range depthTerms {
		v := term.Value(b)
		if v <= 0 {
			continue
		}
		if _, err := d.AddLayer(term.Layer, layerColors[term.Layer], dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", term.Layer, err)
		}
		if err := rectangle(d, x, 0, x+v, height); err != nil {
			return err
		}
		x += v
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save DXF: %w", err)
	}
	return nil
}

// rectangle draws four lines on the current layer.
func rectangle(d *drawing.Drawing, x1, y1, x2, y2 float64) error {
	corners := [][2]float64{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}}
	for i, p := range corners {
		q := corners[(i+1)%len(corners)]
		if _, err := d.Line(p[0], p[1], 0, q[0], q[1], 0); err != nil {
			return fmt.Errorf("failed to draw line: %w", err)
		}
	}
	return nil
}
