package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// Settings controls slide selection.
type Settings struct {
	SlideLengths []float64 // ascending
	Tolerance    float64
}

// DefaultSettings returns the shop's stocked slides and storage tolerance.
func DefaultSettings() Settings {
	return Settings{
		SlideLengths: model.StandardSlideLengths,
		Tolerance:    model.DepthTolerance,
	}
}

// SettingsFromConfig builds calculator settings from the engine config.
func SettingsFromConfig(cfg model.AppConfig) Settings {
	s := DefaultSettings()
	if len(cfg.SlideLengths) > 0 {
		s.SlideLengths = cfg.SlideLengths
	}
	if cfg.DepthTolerance > 0 {
		s.Tolerance = cfg.DepthTolerance
	}
	return s
}

// Calculator computes depth breakdowns and stretchers for cabinets. It holds
// no state between calls and is safe for concurrent use.
type Calculator struct {
	Settings Settings
}

func New(settings Settings) *Calculator {
	if len(settings.SlideLengths) == 0 {
		settings.SlideLengths = model.StandardSlideLengths
	}
	if settings.Tolerance <= 0 {
		settings.Tolerance = model.DepthTolerance
	}
	return &Calculator{Settings: settings}
}

// stretcherNamespace seeds deterministic stretcher IDs so recalculating an
// unchanged cabinet produces identical rows.
var stretcherNamespace = uuid.MustParse("6f1c1a52-3f0e-4e53-9b7c-2d1a4a1f7c10")

// Calculate applies the depth formula, box dimensions and stretcher rules to
// one cabinet. drawers are the cabinet's drawer components in any order.
func (c *Calculator) Calculate(cab model.Cabinet, drawers []model.Component, std model.EffectiveStandards) (model.Calculation, error) {
	if err := checkInputs(cab); err != nil {
		return model.Calculation{}, err
	}

	style, styleName, ok := std.StyleFor(cab.FaceFrameStyle)
	if !ok {
		return model.Calculation{}, &model.UnknownStyleError{CabinetID: cab.ID, Style: styleName, TemplateID: std.TemplateID}
	}

	calc := model.Calculation{CabinetID: cab.ID, Standards: std}
	b, warning, err := c.depthBreakdown(cab, std, style)
	if err != nil {
		return model.Calculation{}, err
	}
	if warning != nil {
		calc.Warnings = append(calc.Warnings, *warning)
	}

	b.BoxHeight = model.Round4(cab.HeightInches)
	if cab.Type.HasToeKick() {
		b.BoxHeight = model.Round4(cab.HeightInches - std.ToeKickHeight)
	}
	if b.BoxHeight <= 0 {
		return model.Calculation{}, &model.InvalidDimensionError{CabinetID: cab.ID, Field: "box_height", Value: b.BoxHeight}
	}

	b.InternalWidth = model.Round4(cab.WidthInches - 2*std.SidePanelThickness)
	if b.InternalWidth <= 0 {
		return model.Calculation{}, &model.InvalidDimensionError{CabinetID: cab.ID, Field: "internal_width", Value: b.InternalWidth}
	}

	calc.Breakdown = b
	calc.Stretchers = GenerateStretchers(cab, drawers, std, b.InternalWidth)
	return calc, nil
}

func checkInputs(cab model.Cabinet) error {
	dims := []struct {
		field string
		value float64
	}{
		{"width_inches", cab.WidthInches},
		{"height_inches", cab.HeightInches},
		{"depth_inches", cab.DepthInches},
	}
	for _, d := range dims {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) || d.value <= 0 {
			return &model.InvalidDimensionError{CabinetID: cab.ID, Field: d.field, Value: d.value}
		}
	}
	if cab.DrawerCount < 0 {
		return &model.InvalidDimensionError{CabinetID: cab.ID, Field: "drawer_count", Value: float64(cab.DrawerCount)}
	}
	return nil
}

// depthBreakdown splits the entered depth into the five TCS terms. The back
// wall gap takes whatever the chosen slide leaves, so the terms always sum to
// the entered depth. A depth that cannot hold the fixed terms is an error.
func (c *Calculator) depthBreakdown(cab model.Cabinet, std model.EffectiveStandards, style model.StyleStandards) (model.DepthBreakdown, *model.DepthValidationWarning, error) {
	total := model.Round4(cab.DepthInches)
	ff := 0.0
	if style.HasFaceFrame {
		ff = model.Round4(std.FaceFrameDepth)
	}
	clr := model.Round4(std.DrawerCavityClearance)
	back := model.Round4(std.BackPanelThickness)

	b := model.DepthBreakdown{
		TotalDepth:         total,
		FaceFrameDepth:     ff,
		DrawerClearance:    clr,
		BackPanelThickness: back,
	}

	fixed := ff + clr + back + std.MinBackWallGap
	slide, ok := c.SelectSlide(total - fixed)
	if ok {
		b.DrawerDepth = slide
		b.DepthValidated = true
		b.MaxSlideLengthInches = &slide
	} else {
		shortest := c.Settings.SlideLengths[0]
		minDepth := model.Round4(shortest + fixed)
		b.DepthValidated = false
		b.DepthValidationMessage = fmt.Sprintf(
			"depth %.4f\" cannot fit a %g\" slide; minimum depth is %.4f\"", total, shortest, minDepth)
		b.MaxSlideLengthInches = &shortest
		b.InternalDepth = clr
		b.BackWallGap = model.Round4(total - ff - clr - back)
		if b.BackWallGap < 0 {
			return model.DepthBreakdown{}, nil, &model.InvalidDimensionError{CabinetID: cab.ID, Field: "back_wall_gap", Value: b.BackWallGap}
		}
		return b, &model.DepthValidationWarning{
			CabinetID:      cab.ID,
			RequestedDepth: total,
			MinimumDepth:   minDepth,
			Message:        b.DepthValidationMessage,
		}, nil
	}

	b.InternalDepth = model.Round4(b.DrawerDepth + clr)
	b.BackWallGap = model.Round4(total - ff - b.DrawerDepth - clr - back)
	return b, nil, nil
}

// SelectSlide returns the longest stocked slide no longer than available.
func (c *Calculator) SelectSlide(available float64) (float64, bool) {
	best, found := 0.0, false
	for _, s := range c.Settings.SlideLengths {
		if s <= available+c.Settings.Tolerance && s > best {
			best, found = s, true
		}
	}
	return best, found
}

// GenerateStretchers returns the front and back stretchers followed by one
// drawer support per drawer, top drawer first, numbered from 1.
func GenerateStretchers(cab model.Cabinet, drawers []model.Component, std model.EffectiveStandards, internalWidth float64) []model.Stretcher {
	ordered := make([]model.Component, len(drawers))
	copy(ordered, drawers)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].ID < ordered[j].ID
	})

	depth := model.Round4(model.Clamp(std.StretcherDepth, std.StretcherMinDepth, std.StretcherMaxDepth))
	thickness := model.Round4(std.StretcherThickness)

	newStretcher := func(number int, pos model.StretcherPosition) model.Stretcher {
		return model.Stretcher{
			ID:              uuid.NewSHA1(stretcherNamespace, []byte(fmt.Sprintf("%s/%d", cab.ID, number))).String(),
			CabinetID:       cab.ID,
			StretcherNumber: number,
			Position:        pos,
			WidthInches:     internalWidth,
			DepthInches:     depth,
			ThicknessInches: thickness,
		}
	}

	out := make([]model.Stretcher, 0, 2+cab.DrawerCount)
	out = append(out, newStretcher(1, model.StretcherFront), newStretcher(2, model.StretcherBack))
	for i := 0; i < cab.DrawerCount; i++ {
		s := newStretcher(len(out)+1, model.StretcherDrawerSupport)
		s.DrawerPosition = i + 1
		if i < len(ordered) {
			id := ordered[i].ID
			s.DrawerID = &id
		}
		out = append(out, s)
	}
	return out
}
