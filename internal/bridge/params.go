package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scenebridge/bridgectl/internal/scene"
)

// Parameter decoding is verb-specific: a comma-separated stable-name list, a
// single JSON payload, or free text. Each verb owns its decoder; a decode
// failure is a protocol violation and degrades the command to a no-op.

// nameListParams splits a comma-separated stable-name list.
func nameListParams(params string) ([]string, error) {
	if strings.TrimSpace(params) == "" {
		return nil, ErrMissingParameters
	}
	parts := strings.Split(params, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	if len(names) == 0 {
		return nil, ErrMissingParameters
	}
	return names, nil
}

// jsonParams decodes the single structured payload carried by multi-field
// verbs.
func jsonParams(params string, out any) error {
	if strings.TrimSpace(params) == "" {
		return ErrMissingParameters
	}
	if err := json.Unmarshal([]byte(params), out); err != nil {
		return fmt.Errorf("bridge: decode payload: %w", err)
	}
	return nil
}

// vecNamesParams decodes the `[vector, [names]]` payload shared by the
// transform verbs.
func vecNamesParams(params string) (scene.Vec3, []string, error) {
	var payload []json.RawMessage
	if err := jsonParams(params, &payload); err != nil {
		return scene.Vec3{}, nil, err
	}
	if len(payload) != 2 {
		return scene.Vec3{}, nil, fmt.Errorf("bridge: decode payload: want [vector, names], got %d elements", len(payload))
	}
	var vec scene.Vec3
	if err := json.Unmarshal(payload[0], &vec); err != nil {
		return scene.Vec3{}, nil, fmt.Errorf("bridge: decode vector: %w", err)
	}
	var names []string
	if err := json.Unmarshal(payload[1], &names); err != nil {
		return scene.Vec3{}, nil, fmt.Errorf("bridge: decode names: %w", err)
	}
	return vec, names, nil
}

// rayParams decodes the `[direction, distance, [names]]` raytrace payload.
func rayParams(params string) (scene.Vec3, float64, []string, error) {
	var payload []json.RawMessage
	if err := jsonParams(params, &payload); err != nil {
		return scene.Vec3{}, 0, nil, err
	}
	if len(payload) != 3 {
		return scene.Vec3{}, 0, nil, fmt.Errorf("bridge: decode payload: want [direction, distance, names], got %d elements", len(payload))
	}
	var dir scene.Vec3
	if err := json.Unmarshal(payload[0], &dir); err != nil {
		return scene.Vec3{}, 0, nil, fmt.Errorf("bridge: decode direction: %w", err)
	}
	var distance float64
	if err := json.Unmarshal(payload[1], &distance); err != nil {
		return scene.Vec3{}, 0, nil, fmt.Errorf("bridge: decode distance: %w", err)
	}
	var names []string
	if err := json.Unmarshal(payload[2], &names); err != nil {
		return scene.Vec3{}, 0, nil, fmt.Errorf("bridge: decode names: %w", err)
	}
	return dir, distance, names, nil
}

// meshParams decodes the `[mesh_path, [names]]` replacement payload.
func meshParams(params string) (string, []string, error) {
	var payload []json.RawMessage
	if err := jsonParams(params, &payload); err != nil {
		return "", nil, err
	}
	if len(payload) != 2 {
		return "", nil, fmt.Errorf("bridge: decode payload: want [mesh_path, names], got %d elements", len(payload))
	}
	var path string
	if err := json.Unmarshal(payload[0], &path); err != nil {
		return "", nil, fmt.Errorf("bridge: decode mesh path: %w", err)
	}
	var names []string
	if err := json.Unmarshal(payload[1], &names); err != nil {
		return "", nil, fmt.Errorf("bridge: decode names: %w", err)
	}
	return path, names, nil
}
