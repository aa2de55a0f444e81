// Package scene defines the host-scene boundary consumed by the bridge.
//
// Ownership boundary:
// - entity lookup by permanent handle
//
// - entity CRUD, transforms, hierarchy, selection, visibility
//
// - simulation flags and native expression execution
//
// The bridge assumes nothing about the host's representation beyond this
// contract. Production adapters wrap the host application's live document;
// the in-memory adapter in this package backs tests and standalone runs.
package scene

import "errors"

var (
	ErrEntityNotFound = errors.New("scene: entity not found")
	ErrAssetNotFound  = errors.New("scene: asset not found")
)

// Vec3 is a position, rotation or scale triple in host units.
type Vec3 [3]float64

// Transform is the full placement of one entity in host units.
type Transform struct {
	Position Vec3
	Rotation Vec3
	Scale    Vec3
}

// EntityRef is an opaque reference to one live entity. Refs are comparable
// only through Adapter.Handle; a ref may outlive its entity and go stale.
type EntityRef interface {
	Handle() int
}

// EntitySpec describes one entity to create.
type EntitySpec struct {
	AssetPath  string `json:"asset_path"`
	Name       string `json:"name"`
	Location   Vec3   `json:"location"`
	Rotation   Vec3   `json:"rotation"`
	Scale      Vec3   `json:"scale"`
	ParentName string `json:"parent_dcc_name"`
}

// SimMode is the physics role assigned to an entity during a simulation run.
type SimMode int

const (
	SimOff SimMode = iota
	SimDynamic
	SimStatic
)

// CameraInfo is the active viewport camera pose in host units.
type CameraInfo struct {
	Position Vec3    `json:"position"`
	Target   Vec3    `json:"target"`
	FOV      float64 `json:"fov"`
}

// Adapter is the scene collaborator the dispatch engine drives. It is not
// safe for concurrent invocation; the bridge serializes all calls through a
// single execution goroutine.
type Adapter interface {
	// Identity.
	EntityByHandle(handle int) (EntityRef, bool)
	Handle(ref EntityRef) int
	DisplayName(ref EntityRef) string

	// Document.
	SceneName() string
	SaveScene() error
	OpenScene(path string) error

	// Entity CRUD.
	CreateEntity(spec EntitySpec) (EntityRef, error)
	ReplaceMesh(ref EntityRef, meshPath string) (EntityRef, error)
	Delete(refs []EntityRef)
	Descendants(ref EntityRef) []EntityRef
	Entities() []EntityRef
	Rename(ref EntityRef, name string)

	// Transforms and hierarchy.
	Transform(ref EntityRef) Transform
	SetTransform(ref EntityRef, t Transform)
	PivotOffset(ref EntityRef) Vec3
	Size(ref EntityRef) Vec3
	ReferencePath(ref EntityRef) string
	Parent(parent EntityRef, children []EntityRef)
	Unparent(refs []EntityRef)
	ParentOf(ref EntityRef) (EntityRef, bool)

	// Selection and visibility.
	Selection() []EntityRef
	SetSelection(refs []EntityRef)
	VisibleGeometry() []EntityRef
	SetHidden(refs []EntityRef, hidden bool)
	IsHidden(ref EntityRef) bool

	// Simulation.
	SetSimulated(ref EntityRef, mode SimMode)
	SimulationSupports(refs []EntityRef) []EntityRef
	StartSimulation() error
	StopSimulation(discard bool) error

	// Viewport.
	CameraInfo() (CameraInfo, bool)
	ToggleSurfaceSnapping() bool

	// Raytrace casts from origin along dir up to distance, ignoring the
	// given entities, and reports the closest hit position.
	Raytrace(origin, dir Vec3, distance float64, ignore []EntityRef) (Vec3, bool)

	// Escape hatch: run text verbatim as a native host-scripting expression.
	ExecuteNativeExpression(expr string) (string, error)

	// Measurement system currently configured on the host.
	UnitSystem() (system string, scale float64)
}
