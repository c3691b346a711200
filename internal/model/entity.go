package model

import (
	"fmt"
	"strings"
)

// EntityKind identifies a level of the manufacturing hierarchy.
type EntityKind int

const (
	KindProject EntityKind = iota
	KindRoom
	KindLocation
	KindCabinetRun
	KindCabinet
	KindSection
	KindComponent
)

// AllKinds lists the hierarchy levels from root to leaf.
var AllKinds = []EntityKind{KindProject, KindRoom, KindLocation, KindCabinetRun, KindCabinet, KindSection, KindComponent}

func (k EntityKind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindRoom:
		return "room"
	case KindLocation:
		return "location"
	case KindCabinetRun:
		return "cabinet_run"
	case KindCabinet:
		return "cabinet"
	case KindSection:
		return "section"
	case KindComponent:
		return "component"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseEntityKind converts a name such as "cabinet_run" or "run" to an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project":
		return KindProject, nil
	case "room":
		return KindRoom, nil
	case "location", "room_location":
		return KindLocation, nil
	case "cabinet_run", "run":
		return KindCabinetRun, nil
	case "cabinet":
		return KindCabinet, nil
	case "section":
		return KindSection, nil
	case "component", "door", "drawer", "shelf", "pullout", "false_front":
		return KindComponent, nil
	default:
		return 0, fmt.Errorf("unknown entity kind %q", s)
	}
}

func (k EntityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EntityKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEntityKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Parent returns the kind one level up. Projects have no parent.
func (k EntityKind) Parent() (EntityKind, bool) {
	switch k {
	case KindProject:
		return 0, false
	case KindRoom:
		return KindProject, true
	case KindLocation:
		return KindRoom, true
	case KindCabinetRun:
		return KindLocation, true
	case KindCabinet:
		return KindCabinetRun, true
	case KindSection:
		return KindCabinet, true
	case KindComponent:
		return KindSection, true
	default:
		return 0, false
	}
}

// IsLeaf reports whether entities of this kind are scored directly instead of aggregated.
func (k EntityKind) IsLeaf() bool {
	return k == KindComponent
}

// EntityRef points at one node of the hierarchy.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// Ref builds an EntityRef.
func Ref(kind EntityKind, id string) EntityRef {
	return EntityRef{Kind: kind, ID: id}
}

func (r EntityRef) String() string {
	return r.Kind.String() + ":" + r.ID
}
