package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// FaceFrameStyle selects which construction style constants apply to a cabinet.
type FaceFrameStyle string

const (
	StyleFrameless      FaceFrameStyle = "frameless"
	StyleFaceFrame      FaceFrameStyle = "face_frame"
	StyleFullOverlay    FaceFrameStyle = "full_overlay"
	StyleInset          FaceFrameStyle = "inset"
	StylePartialOverlay FaceFrameStyle = "partial_overlay"
)

// AllStyles lists the supported construction styles in display order.
var AllStyles = []FaceFrameStyle{StyleFrameless, StyleFaceFrame, StyleFullOverlay, StyleInset, StylePartialOverlay}

// StyleStandards holds the per-style door/drawer front constants.
type StyleStandards struct {
	DoorOverlay  float64 `json:"door_overlay" validate:"gte=0"` // inches the front covers the opening edge
	RevealGap    float64 `json:"reveal_gap" validate:"gte=0"`   // inches between adjacent fronts
	HasFaceFrame bool    `json:"has_face_frame"`
}

// ConstructionTemplate is a named bundle of shop construction constants.
// Projects, rooms, runs and cabinets reference one by ID; the nearest
// reference wins as a whole.
type ConstructionTemplate struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	Name        string `json:"name" gorm:"size:120;not null" validate:"required"`
	Description string `json:"description" gorm:"type:text"`
	IsDefault   bool   `json:"is_default" gorm:"index"`

	// Cabinet heights
	BaseCabinetHeight float64 `json:"base_cabinet_height" gorm:"type:decimal(10,4)" validate:"gt=0"`
	WallCabinetHeight float64 `json:"wall_cabinet_height" gorm:"type:decimal(10,4)" validate:"gt=0"`
	TallCabinetHeight float64 `json:"tall_cabinet_height" gorm:"type:decimal(10,4)" validate:"gt=0"`

	// Toe kick
	ToeKickHeight float64 `json:"toe_kick_height" gorm:"type:decimal(10,4)" validate:"gte=0"`
	ToeKickRecess float64 `json:"toe_kick_recess" gorm:"type:decimal(10,4)" validate:"gte=0"`

	// Stretchers
	StretcherDepth     float64 `json:"stretcher_depth" gorm:"type:decimal(10,4)" validate:"gt=0"`
	StretcherMinDepth  float64 `json:"stretcher_min_depth" gorm:"type:decimal(10,4)" validate:"gt=0"`
	StretcherMaxDepth  float64 `json:"stretcher_max_depth" gorm:"type:decimal(10,4)" validate:"gtefield=StretcherMinDepth"`
	StretcherThickness float64 `json:"stretcher_thickness" gorm:"type:decimal(10,4)" validate:"gt=0"`

	// Face frame
	FaceFrameStileWidth float64 `json:"face_frame_stile_width" gorm:"type:decimal(10,4)" validate:"gt=0"`
	FaceFrameRailWidth  float64 `json:"face_frame_rail_width" gorm:"type:decimal(10,4)" validate:"gt=0"`
	FaceFrameDepth      float64 `json:"face_frame_depth" gorm:"type:decimal(10,4)" validate:"gte=0"`

	Styles       map[FaceFrameStyle]StyleStandards `json:"styles" gorm:"type:text;serializer:json" validate:"required,dive"`
	DefaultStyle FaceFrameStyle                    `json:"default_style" gorm:"size:32" validate:"required"`

	// Materials
	BoxMaterialThickness float64  `json:"box_material_thickness" gorm:"type:decimal(10,4)" validate:"gt=0"`
	BackPanelThickness   float64  `json:"back_panel_thickness" gorm:"type:decimal(10,4)" validate:"gt=0"`
	SidePanelThickness   *float64 `json:"side_panel_thickness,omitempty" gorm:"type:decimal(10,4)" validate:"omitempty,gt=0"` // nil = box thickness

	// Clearances
	DrawerCavityClearance float64 `json:"drawer_cavity_clearance" gorm:"type:decimal(10,4)" validate:"gte=0"`
	MinBackWallGap        float64 `json:"min_back_wall_gap" gorm:"type:decimal(10,4)" validate:"gte=0"`
	EndPanelOverage       float64 `json:"end_panel_overage" gorm:"type:decimal(10,4)" validate:"gte=0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ConstructionTemplate) TableName() string {
	return "construction_templates"
}

// EffectiveSidePanelThickness returns the side panel thickness, falling back
// to the box material thickness when the template does not override it.
func (t ConstructionTemplate) EffectiveSidePanelThickness() float64 {
	if t.SidePanelThickness != nil {
		return *t.SidePanelThickness
	}
	return t.BoxMaterialThickness
}

// Validate checks the template for missing or out-of-range constants.
func (t ConstructionTemplate) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid construction template %q: %w", t.Name, err)
	}
	if _, ok := t.Styles[t.DefaultStyle]; !ok {
		return fmt.Errorf("invalid construction template %q: default style %q has no constants", t.Name, t.DefaultStyle)
	}
	for style := range t.Styles {
		if !style.Valid() {
			return fmt.Errorf("invalid construction template %q: unknown style %q", t.Name, style)
		}
	}
	return nil
}

// Valid reports whether s is one of the supported construction styles.
func (s FaceFrameStyle) Valid() bool {
	for _, known := range AllStyles {
		if s == known {
			return true
		}
	}
	return false
}

// NewConstructionTemplate returns the shop's standard constants under a new ID.
func NewConstructionTemplate(name string) ConstructionTemplate {
	now := time.Now().UTC()
	return ConstructionTemplate{
		ID:                    uuid.NewString(),
		Name:                  name,
		BaseCabinetHeight:     34.5,
		WallCabinetHeight:     30,
		TallCabinetHeight:     84,
		ToeKickHeight:         4.5,
		ToeKickRecess:         3,
		StretcherDepth:        3.5,
		StretcherMinDepth:     2.5,
		StretcherMaxDepth:     4.5,
		StretcherThickness:    0.75,
		FaceFrameStileWidth:   1.5,
		FaceFrameRailWidth:    1.5,
		FaceFrameDepth:        1.5,
		Styles:                DefaultStyleTable(),
		DefaultStyle:          StyleFaceFrame,
		BoxMaterialThickness:  0.75,
		BackPanelThickness:    0.75,
		DrawerCavityClearance: 0.25,
		MinBackWallGap:        0.5,
		EndPanelOverage:       0.25,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// DefaultStyleTable returns overlay and reveal constants for every style.
func DefaultStyleTable() map[FaceFrameStyle]StyleStandards {
	return map[FaceFrameStyle]StyleStandards{
		StyleFrameless:      {DoorOverlay: 0.6875, RevealGap: 0.125, HasFaceFrame: false},
		StyleFaceFrame:      {DoorOverlay: 0.5, RevealGap: 0.125, HasFaceFrame: true},
		StyleFullOverlay:    {DoorOverlay: 1.25, RevealGap: 0.125, HasFaceFrame: true},
		StyleInset:          {DoorOverlay: 0, RevealGap: 0.0625, HasFaceFrame: true},
		StylePartialOverlay: {DoorOverlay: 0.375, RevealGap: 1, HasFaceFrame: true},
	}
}

// TemplateStore holds a library of construction templates.
type TemplateStore struct {
	Templates []ConstructionTemplate `json:"templates"`
}

// NewTemplateStore creates an empty template store.
func NewTemplateStore() TemplateStore {
	return TemplateStore{
		Templates: []ConstructionTemplate{},
	}
}

// Add adds a template to the store, replacing any template with the same ID.
func (ts *TemplateStore) Add(t ConstructionTemplate) {
	for i := range ts.Templates {
		if ts.Templates[i].ID == t.ID {
			ts.Templates[i] = t
			return
		}
	}
	ts.Templates = append(ts.Templates, t)
}

// Default returns the template flagged as the system default, or nil.
func (ts *TemplateStore) Default() *ConstructionTemplate {
	for i := range ts.Templates {
		if ts.Templates[i].IsDefault {
			return &ts.Templates[i]
		}
	}
	return nil
}
