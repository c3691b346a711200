package model

import (
	"time"
)

// CabinetType determines which template height and toe-kick rules apply.
type CabinetType string

const (
	CabinetBase CabinetType = "base"
	CabinetWall CabinetType = "wall"
	CabinetTall CabinetType = "tall"
)

// HasToeKick reports whether the cabinet sits on a toe kick.
func (t CabinetType) HasToeKick() bool {
	return t != CabinetWall
}

// ComponentKind is the type of a leaf component inside a cabinet section.
type ComponentKind string

const (
	ComponentDoor       ComponentKind = "door"
	ComponentDrawer     ComponentKind = "drawer"
	ComponentShelf      ComponentKind = "shelf"
	ComponentPullout    ComponentKind = "pullout"
	ComponentFalseFront ComponentKind = "false_front"
)

// Aggregate holds the derived complexity fields cached on every composite
// level. They are always reproducible from the node's children.
type Aggregate struct {
	ChildCountCached       int                  `json:"child_count_cached" gorm:"not null;default:0"`
	ContributingCount      int                  `json:"contributing_count" gorm:"not null;default:0"` // children that entered the score
	ComplexityScore        *float64             `json:"complexity_score" gorm:"type:decimal(10,4)"`
	ComplexityBreakdown    *ComplexityBreakdown `json:"complexity_breakdown,omitempty" gorm:"type:text;serializer:json"`
	ComplexityCalculatedAt *time.Time           `json:"complexity_calculated_at"`
}

// Project is the root of the hierarchy.
type Project struct {
	ID                     string    `json:"id" gorm:"primaryKey;size:36"`
	Name                   string    `json:"name" gorm:"size:180;not null"`
	ConstructionTemplateID *string   `json:"construction_template_id" gorm:"size:36;index"`
	Aggregate              Aggregate `json:"aggregate" gorm:"embedded"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// Room belongs to a project.
type Room struct {
	ID                     string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID              string    `json:"project_id" gorm:"size:36;index;not null"`
	Name                   string    `json:"name" gorm:"size:180;not null"`
	ConstructionTemplateID *string   `json:"construction_template_id" gorm:"size:36;index"`
	Aggregate              Aggregate `json:"aggregate" gorm:"embedded"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (Room) TableName() string { return "rooms" }

// RoomLocation is a wall or island within a room.
type RoomLocation struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	RoomID    string    `json:"room_id" gorm:"size:36;index;not null"`
	Name      string    `json:"name" gorm:"size:180;not null"`
	Aggregate Aggregate `json:"aggregate" gorm:"embedded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RoomLocation) TableName() string { return "room_locations" }

// CabinetRun is a continuous row of cabinets at one location.
type CabinetRun struct {
	ID                     string    `json:"id" gorm:"primaryKey;size:36"`
	RoomLocationID         string    `json:"room_location_id" gorm:"size:36;index;not null"`
	Name                   string    `json:"name" gorm:"size:180;not null"`
	ConstructionTemplateID *string   `json:"construction_template_id" gorm:"size:36;index"`
	Aggregate              Aggregate `json:"aggregate" gorm:"embedded"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (CabinetRun) TableName() string { return "cabinet_runs" }

// Cabinet is the leaf manufacturing unit. Width, height and depth are the
// entered dimensions; Breakdown holds the last calculated values.
type Cabinet struct {
	ID                     string         `json:"id" gorm:"primaryKey;size:36"`
	CabinetRunID           string         `json:"cabinet_run_id" gorm:"size:36;index;not null"`
	CabinetNumber          string         `json:"cabinet_number" gorm:"size:60"`
	Type                   CabinetType    `json:"type" gorm:"size:16;not null;default:base"`
	FaceFrameStyle         FaceFrameStyle `json:"face_frame_style" gorm:"size:32"`
	ConstructionTemplateID *string        `json:"construction_template_id" gorm:"size:36;index"`
	SortOrder              int            `json:"sort_order" gorm:"not null;default:0"`

	WidthInches  float64 `json:"width_inches" gorm:"type:decimal(10,4)"`  // as entered
	HeightInches float64 `json:"height_inches" gorm:"type:decimal(10,4)"` // as entered
	DepthInches  float64 `json:"depth_inches" gorm:"type:decimal(10,4)"`  // as entered
	DrawerCount  int     `json:"drawer_count" gorm:"not null;default:0"`

	Breakdown        DepthBreakdown `json:"breakdown" gorm:"embedded"`
	CalculatedAt     *time.Time     `json:"calculated_at"`
	CalculationError string         `json:"calculation_error,omitempty" gorm:"type:text"`

	Aggregate Aggregate `json:"aggregate" gorm:"embedded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Cabinet) TableName() string { return "cabinets" }

// Calculated reports whether the cabinet has a stored breakdown.
func (c Cabinet) Calculated() bool {
	return c.CalculatedAt != nil
}

// Section is a vertical or horizontal subdivision of a cabinet box.
type Section struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CabinetID string    `json:"cabinet_id" gorm:"size:36;index;not null"`
	Name      string    `json:"name" gorm:"size:120"`
	SortOrder int       `json:"sort_order" gorm:"not null;default:0"`
	Aggregate Aggregate `json:"aggregate" gorm:"embedded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Section) TableName() string { return "cabinet_sections" }

// Component is a door, drawer, shelf, pullout or false front inside a section.
type Component struct {
	ID                 string        `json:"id" gorm:"primaryKey;size:36"`
	SectionID          string        `json:"section_id" gorm:"size:36;index;not null"`
	Kind               ComponentKind `json:"kind" gorm:"size:32;not null"`
	SortOrder          int           `json:"sort_order" gorm:"not null;default:0"`
	ProfileType        string        `json:"profile_type" gorm:"size:60"`          // slab, shaker, raised_panel, ...
	FabricationMethod  string        `json:"fabrication_method" gorm:"size:60"`    // cnc, hand, outsourced
	HardwareComplexity int           `json:"hardware_complexity" gorm:"default:0"` // 0 (none) to 5 (specialty)

	ComplexityScore        *float64      `json:"complexity_score" gorm:"type:decimal(10,4)"`
	ComplexityFactors      []ScoreFactor `json:"complexity_factors,omitempty" gorm:"type:text;serializer:json"`
	ComplexityCalculatedAt *time.Time    `json:"complexity_calculated_at"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

func (Component) TableName() string { return "section_components" }

// StretcherPosition is where a stretcher sits in the cabinet box.
type StretcherPosition string

const (
	StretcherFront         StretcherPosition = "front"
	StretcherBack          StretcherPosition = "back"
	StretcherDrawerSupport StretcherPosition = "drawer_support"
)

// Stretcher is a generated structural rail. Never entered by hand.
type Stretcher struct {
	ID              string            `json:"id" gorm:"primaryKey;size:36"`
	CabinetID       string            `json:"cabinet_id" gorm:"size:36;index;not null"`
	StretcherNumber int               `json:"stretcher_number" gorm:"not null"`
	Position        StretcherPosition `json:"position" gorm:"size:20;not null"`
	WidthInches     float64           `json:"width_inches" gorm:"type:decimal(10,4)"`
	DepthInches     float64           `json:"depth_inches" gorm:"type:decimal(10,4)"`
	ThicknessInches float64           `json:"thickness_inches" gorm:"type:decimal(10,4)"`
	DrawerID        *string           `json:"drawer_id,omitempty" gorm:"size:36"`
	DrawerPosition  int               `json:"drawer_position,omitempty"` // 1 = top drawer
	CreatedAt       time.Time         `json:"created_at"`
}

func (Stretcher) TableName() string { return "stretchers" }
