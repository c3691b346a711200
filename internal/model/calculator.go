package model

// DepthBreakdown holds the TCS depth decomposition of a cabinet plus the
// derived box dimensions. All values are inches at storage precision.
//
//	total = face frame + drawer + clearance + back panel + back wall gap
type DepthBreakdown struct {
	TotalDepth         float64 `json:"total_depth" gorm:"type:decimal(10,4)"`
	FaceFrameDepth     float64 `json:"face_frame_depth" gorm:"type:decimal(10,4)"`
	InternalDepth      float64 `json:"internal_depth" gorm:"type:decimal(10,4)"` // drawer + clearance
	DrawerDepth        float64 `json:"drawer_depth" gorm:"type:decimal(10,4)"`
	DrawerClearance    float64 `json:"drawer_clearance" gorm:"type:decimal(10,4)"`
	BackPanelThickness float64 `json:"back_panel_thickness" gorm:"type:decimal(10,4)"`
	BackWallGap        float64 `json:"back_wall_gap" gorm:"type:decimal(10,4)"`
	BoxHeight          float64 `json:"box_height" gorm:"type:decimal(10,4)"`
	InternalWidth      float64 `json:"internal_width" gorm:"type:decimal(10,4)"`

	DepthValidated         bool     `json:"depth_validated" gorm:"not null;default:false"`
	DepthValidationMessage string   `json:"depth_validation_message,omitempty" gorm:"type:text"`
	MaxSlideLengthInches   *float64 `json:"max_slide_length_inches,omitempty" gorm:"type:decimal(10,4)"`
}

// TermSum returns the sum of the five depth terms.
func (b DepthBreakdown) TermSum() float64 {
	return b.FaceFrameDepth + b.DrawerDepth + b.DrawerClearance + b.BackPanelThickness + b.BackWallGap
}

// Balanced reports whether the total depth equals the sum of its terms within DepthTolerance.
func (b DepthBreakdown) Balanced() bool {
	return WithinTolerance(b.TotalDepth, b.TermSum(), DepthTolerance)
}

// Snapshot lists the numeric breakdown fields in a fixed order for auditing.
func (b DepthBreakdown) Snapshot() Snapshot {
	return Snapshot{
		{Field: "total_depth", Value: b.TotalDepth},
		{Field: "face_frame_depth", Value: b.FaceFrameDepth},
		{Field: "internal_depth", Value: b.InternalDepth},
		{Field: "drawer_depth", Value: b.DrawerDepth},
		{Field: "drawer_clearance", Value: b.DrawerClearance},
		{Field: "back_panel_thickness", Value: b.BackPanelThickness},
		{Field: "back_wall_gap", Value: b.BackWallGap},
		{Field: "box_height", Value: b.BoxHeight},
		{Field: "internal_width", Value: b.InternalWidth},
	}
}

// Calculation is the full output of one cabinet dimension calculation.
type Calculation struct {
	CabinetID  string                   `json:"cabinet_id"`
	Breakdown  DepthBreakdown           `json:"breakdown"`
	Stretchers []Stretcher              `json:"stretchers"`
	Standards  EffectiveStandards       `json:"standards"`
	Warnings   []DepthValidationWarning `json:"warnings,omitempty"`
}

// StandardsSource is the hierarchy level a template was resolved from.
type StandardsSource string

const (
	SourceCabinet    StandardsSource = "cabinet"
	SourceCabinetRun StandardsSource = "cabinet_run"
	SourceRoom       StandardsSource = "room"
	SourceProject    StandardsSource = "project"
	SourceDefault    StandardsSource = "system_default"
)

// EffectiveStandards is a fully resolved set of construction constants for one cabinet.
type EffectiveStandards struct {
	TemplateID   string          `json:"template_id"`
	TemplateName string          `json:"template_name"`
	Source       StandardsSource `json:"source"`

	BaseCabinetHeight float64 `json:"base_cabinet_height"`
	WallCabinetHeight float64 `json:"wall_cabinet_height"`
	TallCabinetHeight float64 `json:"tall_cabinet_height"`

	ToeKickHeight float64 `json:"toe_kick_height"`
	ToeKickRecess float64 `json:"toe_kick_recess"`

	StretcherDepth     float64 `json:"stretcher_depth"`
	StretcherMinDepth  float64 `json:"stretcher_min_depth"`
	StretcherMaxDepth  float64 `json:"stretcher_max_depth"`
	StretcherThickness float64 `json:"stretcher_thickness"`

	FaceFrameStileWidth float64 `json:"face_frame_stile_width"`
	FaceFrameRailWidth  float64 `json:"face_frame_rail_width"`
	FaceFrameDepth      float64 `json:"face_frame_depth"`

	Styles       map[FaceFrameStyle]StyleStandards `json:"styles"`
	DefaultStyle FaceFrameStyle                    `json:"default_style"`

	BoxMaterialThickness float64 `json:"box_material_thickness"`
	BackPanelThickness   float64 `json:"back_panel_thickness"`
	SidePanelThickness   float64 `json:"side_panel_thickness"`

	DrawerCavityClearance float64 `json:"drawer_cavity_clearance"`
	MinBackWallGap        float64 `json:"min_back_wall_gap"`
	EndPanelOverage       float64 `json:"end_panel_overage"`
}

// StandardsFromTemplate flattens a template into effective standards.
func StandardsFromTemplate(t ConstructionTemplate, source StandardsSource) EffectiveStandards {
	styles := make(map[FaceFrameStyle]StyleStandards, len(t.Styles))
	for k, v := range t.Styles {
		styles[k] = v
	}
	return EffectiveStandards{
		TemplateID:            t.ID,
		TemplateName:          t.Name,
		Source:                source,
		BaseCabinetHeight:     t.BaseCabinetHeight,
		WallCabinetHeight:     t.WallCabinetHeight,
		TallCabinetHeight:     t.TallCabinetHeight,
		ToeKickHeight:         t.ToeKickHeight,
		ToeKickRecess:         t.ToeKickRecess,
		StretcherDepth:        t.StretcherDepth,
		StretcherMinDepth:     t.StretcherMinDepth,
		StretcherMaxDepth:     t.StretcherMaxDepth,
		StretcherThickness:    t.StretcherThickness,
		FaceFrameStileWidth:   t.FaceFrameStileWidth,
		FaceFrameRailWidth:    t.FaceFrameRailWidth,
		FaceFrameDepth:        t.FaceFrameDepth,
		Styles:                styles,
		DefaultStyle:          t.DefaultStyle,
		BoxMaterialThickness:  t.BoxMaterialThickness,
		BackPanelThickness:    t.BackPanelThickness,
		SidePanelThickness:    t.EffectiveSidePanelThickness(),
		DrawerCavityClearance: t.DrawerCavityClearance,
		MinBackWallGap:        t.MinBackWallGap,
		EndPanelOverage:       t.EndPanelOverage,
	}
}

// StyleFor returns the constants for style, using the default style when style is empty.
func (s EffectiveStandards) StyleFor(style FaceFrameStyle) (StyleStandards, FaceFrameStyle, bool) {
	if style == "" {
		style = s.DefaultStyle
	}
	st, ok := s.Styles[style]
	return st, style, ok
}

// Snapshot lists the template-derived constants that feed the depth formula.
func (s EffectiveStandards) Snapshot() Snapshot {
	return Snapshot{
		{Field: "face_frame_depth", Value: s.FaceFrameDepth},
		{Field: "drawer_clearance", Value: s.DrawerCavityClearance},
		{Field: "back_panel_thickness", Value: s.BackPanelThickness},
		{Field: "min_back_wall_gap", Value: s.MinBackWallGap},
		{Field: "toe_kick_height", Value: s.ToeKickHeight},
		{Field: "side_panel_thickness", Value: s.SidePanelThickness},
		{Field: "stretcher_depth", Value: s.StretcherDepth},
	}
}
