package scene

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memEntity is one live entity in the in-memory scene.
type memEntity struct {
	handle    int
	name      string
	assetPath string
	transform Transform
	pivot     Vec3
	size      Vec3
	parent    int
	hidden    bool
	sim       SimMode
}

func (e *memEntity) Handle() int { return e.handle }

// MemScene is the reference Adapter implementation. Handles are assigned
// once per entity and never reused within a session.
type MemScene struct {
	mu         sync.Mutex
	nextHandle int
	entities   map[int]*memEntity
	selection  []int
	sceneName  string
	scenePath  string
	camera     *CameraInfo
	snapping   bool
	simulating bool
	unitSystem string
	unitScale  float64
	nativeLog  []string
	saveCount  int
}

func NewMemScene(sceneName string) *MemScene {
	return &MemScene{
		nextHandle: 1,
		entities:   make(map[int]*memEntity),
		sceneName:  sceneName,
		unitSystem: "centimeters",
		unitScale:  1.0,
	}
}

func (s *MemScene) EntityByHandle(handle int) (EntityRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[handle]
	if !ok {
		return nil, false
	}
	return e, true
}

func (s *MemScene) Handle(ref EntityRef) int {
	if ref == nil {
		return 0
	}
	return ref.Handle()
}

func (s *MemScene) DisplayName(ref EntityRef) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		return e.name
	}
	return ""
}

func (s *MemScene) SceneName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneName
}

func (s *MemScene) SaveScene() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCount++
	return nil
}

// SaveCount reports how many saves were requested. Test observability only.
func (s *MemScene) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}

func (s *MemScene) OpenScene(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty scene path", ErrAssetNotFound)
	}
	s.scenePath = path
	s.sceneName = path
	return nil
}

func (s *MemScene) CreateEntity(spec EntitySpec) (EntityRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = "entity"
	}
	e := &memEntity{
		handle:    s.nextHandle,
		name:      name,
		assetPath: spec.AssetPath,
		transform: Transform{Position: spec.Location, Rotation: spec.Rotation, Scale: normalizeScale(spec.Scale)},
	}
	s.nextHandle++
	s.entities[e.handle] = e
	if parent := strings.TrimSpace(spec.ParentName); parent != "" {
		if p := s.findByNameLocked(parent); p != nil {
			e.parent = p.handle
		}
	}
	return e, nil
}

// ReplaceMesh destroys ref and creates a replacement carrying the old
// transform and hierarchy. The replacement gets a fresh handle, which is why
// callers must record a supersession for the old stable name.
func (s *MemScene) ReplaceMesh(ref EntityRef, meshPath string) (EntityRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.entities[ref.Handle()]
	if !ok {
		return nil, fmt.Errorf("%w: handle %d", ErrEntityNotFound, ref.Handle())
	}
	if strings.TrimSpace(meshPath) == "" {
		return nil, fmt.Errorf("%w: empty mesh path", ErrAssetNotFound)
	}
	repl := &memEntity{
		handle:    s.nextHandle,
		name:      baseAssetName(meshPath),
		assetPath: meshPath,
		transform: old.transform,
		pivot:     old.pivot,
		size:      old.size,
		parent:    old.parent,
		hidden:    old.hidden,
	}
	s.nextHandle++
	s.reparentChildrenLocked(old.handle, repl.handle)
	delete(s.entities, old.handle)
	s.entities[repl.handle] = repl
	s.dropFromSelectionLocked(old.handle)
	return repl, nil
}

func (s *MemScene) Delete(refs []EntityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		s.reparentChildrenLocked(ref.Handle(), 0)
		delete(s.entities, ref.Handle())
		s.dropFromSelectionLocked(ref.Handle())
	}
}

func (s *MemScene) Descendants(ref EntityRef) []EntityRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []EntityRef
	var walk func(handle int)
	walk = func(handle int) {
		for _, e := range s.sortedLocked() {
			if e.parent == handle {
				out = append(out, e)
				walk(e.handle)
			}
		}
	}
	walk(ref.Handle())
	return out
}

func (s *MemScene) Entities() []EntityRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntityRef, 0, len(s.entities))
	for _, e := range s.sortedLocked() {
		out = append(out, e)
	}
	return out
}

func (s *MemScene) Rename(ref EntityRef, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		e.name = name
	}
}

func (s *MemScene) Transform(ref EntityRef) Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		return e.transform
	}
	return Transform{}
}

func (s *MemScene) SetTransform(ref EntityRef, t Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		e.transform = t
	}
}

func (s *MemScene) PivotOffset(ref EntityRef) Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		return e.pivot
	}
	return Vec3{}
}

func (s *MemScene) Size(ref EntityRef) Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		return e.size
	}
	return Vec3{}
}

func (s *MemScene) ReferencePath(ref EntityRef) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		return e.assetPath
	}
	return ""
}

func (s *MemScene) Parent(parent EntityRef, children []EntityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entities[parent.Handle()]
	if !ok {
		return
	}
	for _, child := range children {
		if child == nil || child.Handle() == p.handle {
			continue
		}
		if e, ok := s.entities[child.Handle()]; ok {
			e.parent = p.handle
		}
	}
}

func (s *MemScene) Unparent(refs []EntityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if e, ok := s.entities[ref.Handle()]; ok {
			e.parent = 0
		}
	}
}

func (s *MemScene) ParentOf(ref EntityRef) (EntityRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[ref.Handle()]
	if !ok || e.parent == 0 {
		return nil, false
	}
	p, ok := s.entities[e.parent]
	if !ok {
		return nil, false
	}
	return p, true
}

func (s *MemScene) Selection() []EntityRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntityRef, 0, len(s.selection))
	for _, handle := range s.selection {
		if e, ok := s.entities[handle]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemScene) SetSelection(refs []EntityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = s.selection[:0]
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if _, ok := s.entities[ref.Handle()]; ok {
			s.selection = append(s.selection, ref.Handle())
		}
	}
}

func (s *MemScene) VisibleGeometry() []EntityRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []EntityRef
	for _, e := range s.sortedLocked() {
		if !e.hidden {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemScene) SetHidden(refs []EntityRef, hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if e, ok := s.entities[ref.Handle()]; ok {
			e.hidden = hidden
		}
	}
}

func (s *MemScene) IsHidden(ref EntityRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		return e.hidden
	}
	return false
}

func (s *MemScene) SetSimulated(ref EntityRef, mode SimMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ref.Handle()]; ok {
		e.sim = mode
	}
}

// SimulationSupports returns non-hidden entities that dynamic bodies may rest
// on and that are not already part of the simulated set.
func (s *MemScene) SimulationSupports(refs []EntityRef) []EntityRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	simulated := make(map[int]struct{}, len(refs))
	for _, ref := range refs {
		if ref != nil {
			simulated[ref.Handle()] = struct{}{}
		}
	}
	var out []EntityRef
	for _, e := range s.sortedLocked() {
		if _, ok := simulated[e.handle]; ok {
			continue
		}
		if !e.hidden && e.sim == SimOff {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemScene) StartSimulation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulating = true
	return nil
}

func (s *MemScene) StopSimulation(discard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulating = false
	_ = discard
	return nil
}

// Simulating reports whether a simulation run is active. Test observability.
func (s *MemScene) Simulating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulating
}

func (s *MemScene) CameraInfo() (CameraInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.camera == nil {
		return CameraInfo{}, false
	}
	return *s.camera, true
}

func (s *MemScene) SetCameraInfo(info CameraInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = &info
}

func (s *MemScene) ToggleSurfaceSnapping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapping = !s.snapping
	return s.snapping
}

// Raytrace intersects against the ground plane at z=0 only. Sufficient for
// snapping behavior in tests and standalone runs.
func (s *MemScene) Raytrace(origin, dir Vec3, distance float64, ignore []EntityRef) (Vec3, bool) {
	if dir[2] >= 0 || origin[2] < 0 {
		return Vec3{}, false
	}
	travel := origin[2] / -dir[2]
	if travel > distance {
		return Vec3{}, false
	}
	return Vec3{origin[0] + dir[0]*travel, origin[1] + dir[1]*travel, 0}, true
}

func (s *MemScene) ExecuteNativeExpression(expr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nativeLog = append(s.nativeLog, expr)
	return "", nil
}

// NativeExpressions returns every expression routed through the escape hatch.
func (s *MemScene) NativeExpressions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.nativeLog))
	copy(out, s.nativeLog)
	return out
}

func (s *MemScene) UnitSystem() (string, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unitSystem, s.unitScale
}

func (s *MemScene) SetUnitSystem(system string, scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitSystem = system
	s.unitScale = scale
}

func (s *MemScene) findByNameLocked(name string) *memEntity {
	for _, e := range s.sortedLocked() {
		if e.name == name {
			return e
		}
	}
	return nil
}

func (s *MemScene) reparentChildrenLocked(oldParent, newParent int) {
	for _, e := range s.entities {
		if e.parent == oldParent {
			e.parent = newParent
		}
	}
}

func (s *MemScene) dropFromSelectionLocked(handle int) {
	kept := s.selection[:0]
	for _, h := range s.selection {
		if h != handle {
			kept = append(kept, h)
		}
	}
	s.selection = kept
}

func (s *MemScene) sortedLocked() []*memEntity {
	out := make([]*memEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}

func normalizeScale(v Vec3) Vec3 {
	if v == (Vec3{}) {
		return Vec3{1, 1, 1}
	}
	return v
}

func baseAssetName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "entity"
	}
	return base
}
