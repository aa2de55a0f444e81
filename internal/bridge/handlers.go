package bridge

import (
	"strings"

	"github.com/scenebridge/bridgectl/internal/scene"
)

// commandTable is the static verb table. Verbs absent from this table fall
// through to the native-expression escape hatch when they carry parameters.
func commandTable() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"get_scene_name":     handleGetSceneName,
		"save_current_scene": handleSaveCurrentScene,
		"open_scene":         handleOpenScene,
		"report_done":        handleReportDone,

		"get_selection": handleGetSelection,
		"select":        handleSelect,
		"get_visible_static_mesh_actors":              handleGetVisibleStaticMeshActors,
		"get_selected_and_visible_static_mesh_actors": handleGetSelectedAndVisible,

		"get_location_data":  handleGetLocationData,
		"get_pivot_data":     handleGetPivotData,
		"get_transform_data": handleGetTransformData,

		"add_objects":           handleAddObjects,
		"set_mesh":              handleSetMesh,
		"set_mesh_on_selection": handleSetMeshOnSelection,
		"parent":                handleParent,
		"unparent":              handleUnparent,
		"rename":                handleRename,
		"remove":                handleRemove,
		"remove_descendents":    handleRemoveDescendents,
		"set_hidden":            handleSetHidden,
		"set_visible":           handleSetVisible,
		"match_objects":         handleMatchObjects,
		"kill":                  handleKill,

		"translate":          transformHandler(applyTranslate, true),
		"scale":              transformHandler(applyScale, false),
		"rotate":             transformHandler(applyRotate, false),
		"translate_relative": transformHandler(applyTranslateRelative, true),
		"scale_relative":     transformHandler(applyScaleRelative, false),
		"rotate_relative":    transformHandler(applyRotateRelative, false),

		"raytrace":               handleRaytrace,
		"raytrace_bidirectional": handleRaytrace,

		"enable_simulation_on_objects": handleEnableSimulation,
		"start_simulation":             handleStartSimulation,
		"cancel_simulation":            simulationStopHandler(true),
		"end_simulation":               simulationStopHandler(false),
		"get_simulation_on_actors_by_name":           handleSimulationQueryStub,
		"get_transform_data_from_simulating_objects": handleSimulationQueryStub,

		"get_camera_info":         handleGetCameraInfo,
		"toggle_surface_snapping": handleToggleSurfaceSnapping,
	}
}

func handleGetSceneName(d *Dispatcher, _ string) (any, error) {
	return d.sc.SceneName(), nil
}

func handleSaveCurrentScene(d *Dispatcher, _ string) (any, error) {
	return nil, d.sc.SaveScene()
}

func handleOpenScene(d *Dispatcher, params string) (any, error) {
	path := strings.TrimSpace(params)
	if path == "" {
		return nil, ErrMissingParameters
	}
	return nil, d.sc.OpenScene(path)
}

func handleReportDone(d *Dispatcher, _ string) (any, error) {
	return `"Done"`, nil
}

func handleGetSelection(d *Dispatcher, _ string) (any, error) {
	return d.stableNames(d.sc.Selection()), nil
}

func handleSelect(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	d.sc.SetSelection(d.resolveValid(names))
	return nil, nil
}

func handleGetVisibleStaticMeshActors(d *Dispatcher, _ string) (any, error) {
	return strings.Join(d.stableNames(d.sc.VisibleGeometry()), ","), nil
}

func handleGetSelectedAndVisible(d *Dispatcher, _ string) (any, error) {
	selected := d.sc.Selection()
	rendered := d.sc.VisibleGeometry()
	return map[string]any{
		"selected_names": d.stableNames(selected),
		"rendered_names": d.stableNames(rendered),
		"selected_paths": d.pathIndex(selected),
		"rendered_paths": d.pathIndex(rendered),
		"scene_name":     d.sc.SceneName(),
	}, nil
}

func handleGetLocationData(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float64)
	for _, ref := range d.idents.ResolveAll(names) {
		if ref == nil {
			continue
		}
		pos := d.sc.Transform(ref).Position
		out[StableNameFor(d.sc, ref)] = d.vecToExternal(pos)
	}
	return out, nil
}

func handleGetPivotData(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float64)
	for _, ref := range d.idents.ResolveAll(names) {
		if ref == nil {
			continue
		}
		pivot := d.sc.PivotOffset(ref)
		pos := d.sc.Transform(ref).Position
		world := scene.Vec3{pos[0] + pivot[0], pos[1] + pivot[1], pos[2] + pivot[2]}
		out[StableNameFor(d.sc, ref)] = d.vecToExternal(world)
	}
	return out, nil
}

// handleGetTransformData replies with, per resolved name:
// position, rotation, scale (9), size (3), pivot offset (3), parent name.
func handleGetTransformData(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]any)
	refs := d.idents.ResolveAll(names)
	for i, ref := range refs {
		if ref == nil {
			continue
		}
		t := d.sc.Transform(ref)
		row := make([]any, 0, 16)
		for _, v := range d.vecToExternal(t.Position) {
			row = append(row, v)
		}
		row = append(row, t.Rotation[0], t.Rotation[1], t.Rotation[2])
		row = append(row, t.Scale[0], t.Scale[1], t.Scale[2])
		for _, v := range d.vecToExternal(d.sc.Size(ref)) {
			row = append(row, v)
		}
		for _, v := range d.vecToExternal(d.sc.PivotOffset(ref)) {
			row = append(row, v)
		}
		parentName := ""
		if parent, ok := d.sc.ParentOf(ref); ok {
			parentName = StableNameFor(d.sc, parent)
		}
		row = append(row, parentName)
		out[names[i]] = row
	}
	return out, nil
}

// handleAddObjects creates a batch of entities addressed by controller-side
// placeholder names and returns the placeholder-to-stable-name mapping. The
// placeholder is recorded as an alias so a follow-up command sent before this
// reply lands still resolves to the new entity.
func handleAddObjects(d *Dispatcher, params string) (any, error) {
	var specs map[string]scene.EntitySpec
	if err := jsonParams(params, &specs); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(specs))
	for placeholder, spec := range specs {
		spec.Location = d.vecFromExternal(spec.Location)
		ref, err := d.sc.CreateEntity(spec)
		if err != nil {
			continue
		}
		d.idents.RecordSupersession(placeholder, nil, ref)
		out[placeholder] = StableNameFor(d.sc, ref)
	}
	return out, nil
}

func handleSetMesh(d *Dispatcher, params string) (any, error) {
	path, names, err := meshParams(params)
	if err != nil {
		return nil, err
	}
	for _, ref := range d.resolveValid(names) {
		d.replaceMesh(ref, path)
	}
	return nil, nil
}

func handleSetMeshOnSelection(d *Dispatcher, params string) (any, error) {
	path := strings.TrimSpace(params)
	if path == "" {
		return nil, ErrMissingParameters
	}
	for _, ref := range d.sc.Selection() {
		d.replaceMesh(ref, path)
	}
	return nil, nil
}

func handleParent(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	refs := d.idents.ResolveAll(names)
	if len(refs) < 2 || refs[0] == nil {
		return nil, nil
	}
	children := make([]scene.EntityRef, 0, len(refs)-1)
	for _, ref := range refs[1:] {
		if ref != nil {
			children = append(children, ref)
		}
	}
	d.sc.Parent(refs[0], children)
	return nil, nil
}

func handleUnparent(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	d.sc.Unparent(d.resolveValid(names))
	return nil, nil
}

func handleRename(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	if len(names) != 2 {
		return nil, ErrMissingParameters
	}
	ref, ok := d.idents.Resolve(names[0])
	if !ok {
		return nil, nil
	}
	d.sc.Rename(ref, names[1])
	return d.sc.DisplayName(ref), nil
}

func handleRemove(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	refs := d.resolveValid(names)
	d.idents.PruneDestroyed(refs)
	d.sc.Delete(refs)
	return nil, nil
}

func handleRemoveDescendents(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	for _, ref := range d.resolveValid(names) {
		descendants := d.sc.Descendants(ref)
		d.idents.PruneDestroyed(descendants)
		d.sc.Delete(descendants)
	}
	return nil, nil
}

func handleSetHidden(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	d.sc.SetHidden(d.resolveValid(names), true)
	return nil, nil
}

func handleSetVisible(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	d.sc.SetHidden(d.resolveValid(names), false)
	return nil, nil
}

// handleMatchObjects matches bare display names against live entities. This
// is the one lookup path keyed by display name rather than handle, used when
// the controller has names from outside the bridge session.
func handleMatchObjects(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	entities := d.sc.Entities()
	for _, name := range names {
		for _, ref := range entities {
			if d.sc.DisplayName(ref) == name {
				out[name] = StableNameFor(d.sc, ref)
				break
			}
		}
	}
	return out, nil
}

// handleKill toggles the kill tag on the current selection's display names.
func handleKill(d *Dispatcher, _ string) (any, error) {
	for _, ref := range d.sc.Selection() {
		name := d.sc.DisplayName(ref)
		if strings.Contains(name, "_kill_") {
			d.sc.Rename(ref, strings.ReplaceAll(name, "_kill_", ""))
		} else {
			d.sc.Rename(ref, name+"_kill_")
		}
	}
	return nil, nil
}

// transformHandler builds the shared `[vector, [names]]` verb body. Only
// translation values carry units; rotation and scale cross the boundary
// unconverted.
func transformHandler(apply func(d *Dispatcher, ref scene.EntityRef, v scene.Vec3), convertUnits bool) HandlerFunc {
	return func(d *Dispatcher, params string) (any, error) {
		vec, names, err := vecNamesParams(params)
		if err != nil {
			return nil, err
		}
		if convertUnits {
			vec = d.vecFromExternal(vec)
		}
		for _, ref := range d.idents.ResolveAll(names) {
			if ref == nil {
				continue
			}
			apply(d, ref, vec)
		}
		return nil, nil
	}
}

func applyTranslate(d *Dispatcher, ref scene.EntityRef, v scene.Vec3) {
	t := d.sc.Transform(ref)
	t.Position = v
	d.sc.SetTransform(ref, t)
}

func applyTranslateRelative(d *Dispatcher, ref scene.EntityRef, v scene.Vec3) {
	t := d.sc.Transform(ref)
	t.Position = scene.Vec3{t.Position[0] + v[0], t.Position[1] + v[1], t.Position[2] + v[2]}
	d.sc.SetTransform(ref, t)
}

func applyScale(d *Dispatcher, ref scene.EntityRef, v scene.Vec3) {
	t := d.sc.Transform(ref)
	t.Scale = v
	d.sc.SetTransform(ref, t)
}

func applyScaleRelative(d *Dispatcher, ref scene.EntityRef, v scene.Vec3) {
	t := d.sc.Transform(ref)
	t.Scale = scene.Vec3{t.Scale[0] * v[0], t.Scale[1] * v[1], t.Scale[2] * v[2]}
	d.sc.SetTransform(ref, t)
}

func applyRotate(d *Dispatcher, ref scene.EntityRef, v scene.Vec3) {
	t := d.sc.Transform(ref)
	t.Rotation = v
	d.sc.SetTransform(ref, t)
}

func applyRotateRelative(d *Dispatcher, ref scene.EntityRef, v scene.Vec3) {
	t := d.sc.Transform(ref)
	t.Rotation = scene.Vec3{t.Rotation[0] + v[0], t.Rotation[1] + v[1], t.Rotation[2] + v[2]}
	d.sc.SetTransform(ref, t)
}

func handleRaytrace(d *Dispatcher, params string) (any, error) {
	dir, distance, names, err := rayParams(params)
	if err != nil {
		return nil, err
	}
	distance = d.units.FromExternal(distance)
	out := make(map[string][]float64)
	refs := d.idents.ResolveAll(names)
	for i, ref := range refs {
		if ref == nil {
			continue
		}
		origin := d.sc.Transform(ref).Position
		hit, ok := d.sc.Raytrace(origin, dir, distance, []scene.EntityRef{ref})
		if ok {
			out[names[i]] = d.vecToExternal(hit)
		} else {
			out[names[i]] = []float64{0, 0, 0}
		}
	}
	return out, nil
}

// handleEnableSimulation flags the named entities dynamic and everything they
// could land on static. Hidden entities never simulate.
func handleEnableSimulation(d *Dispatcher, params string) (any, error) {
	names, err := nameListParams(params)
	if err != nil {
		return nil, err
	}
	var dynamic []scene.EntityRef
	for _, ref := range d.resolveValid(names) {
		if d.sc.IsHidden(ref) {
			continue
		}
		d.sc.SetSimulated(ref, scene.SimDynamic)
		dynamic = append(dynamic, ref)
	}
	supports := d.sc.SimulationSupports(dynamic)
	for _, ref := range supports {
		d.sc.SetSimulated(ref, scene.SimStatic)
	}
	d.simulated = append(dynamic, supports...)
	return nil, nil
}

func handleStartSimulation(d *Dispatcher, _ string) (any, error) {
	return nil, d.sc.StartSimulation()
}

func simulationStopHandler(discard bool) HandlerFunc {
	return func(d *Dispatcher, _ string) (any, error) {
		if err := d.sc.StopSimulation(discard); err != nil {
			return nil, err
		}
		for _, ref := range d.simulated {
			d.sc.SetSimulated(ref, scene.SimOff)
		}
		d.simulated = nil
		return nil, nil
	}
}

// The controller polls these on hosts that report live simulation state; this
// host replies with the sentinel, which the controller treats as "none".
func handleSimulationQueryStub(_ *Dispatcher, _ string) (any, error) {
	return nil, nil
}

func handleGetCameraInfo(d *Dispatcher, _ string) (any, error) {
	info, ok := d.sc.CameraInfo()
	if !ok {
		return nil, nil
	}
	return map[string]any{
		"position": d.vecToExternal(info.Position),
		"target":   d.vecToExternal(info.Target),
		"fov":      info.FOV,
	}, nil
}

func handleToggleSurfaceSnapping(d *Dispatcher, _ string) (any, error) {
	d.sc.ToggleSurfaceSnapping()
	return nil, nil
}

// --- shared helpers ---

func (d *Dispatcher) resolveValid(names []string) []scene.EntityRef {
	refs := d.idents.ResolveAll(names)
	out := make([]scene.EntityRef, 0, len(refs))
	for _, ref := range refs {
		if ref != nil {
			out = append(out, ref)
		}
	}
	return out
}

func (d *Dispatcher) stableNames(refs []scene.EntityRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, StableNameFor(d.sc, ref))
	}
	return out
}

// pathIndex groups entity list indices by their asset reference path.
func (d *Dispatcher) pathIndex(refs []scene.EntityRef) map[string][]int {
	out := make(map[string][]int)
	for i, ref := range refs {
		path := d.sc.ReferencePath(ref)
		out[path] = append(out[path], i)
	}
	return out
}

func (d *Dispatcher) replaceMesh(ref scene.EntityRef, path string) {
	oldName := StableNameFor(d.sc, ref)
	replacement, err := d.sc.ReplaceMesh(ref, path)
	if err != nil {
		return
	}
	d.idents.RecordSupersession(oldName, ref, replacement)
}

func (d *Dispatcher) vecToExternal(v scene.Vec3) []float64 {
	return []float64{d.units.ToExternal(v[0]), d.units.ToExternal(v[1]), d.units.ToExternal(v[2])}
}

func (d *Dispatcher) vecFromExternal(v scene.Vec3) scene.Vec3 {
	return scene.Vec3{d.units.FromExternal(v[0]), d.units.FromExternal(v[1]), d.units.FromExternal(v[2])}
}
