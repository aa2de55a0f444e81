package bridge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/scenebridge/bridgectl/internal/scene"
)

var ErrInvalidStableName = errors.New("bridge: invalid stable name")

// ParseStableName splits "<display-name>#<handle>" on the last '#'. Display
// names may themselves contain '#' and may collide; only the trailing handle
// identifies the entity.
func ParseStableName(name string) (display string, handle int, err error) {
	i := strings.LastIndexByte(name, '#')
	if i < 0 {
		return "", 0, fmt.Errorf("%w: missing handle separator: %q", ErrInvalidStableName, name)
	}
	handle, convErr := strconv.Atoi(strings.TrimSpace(name[i+1:]))
	if convErr != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidStableName, name)
	}
	return name[:i], handle, nil
}

// StableNameFor formats the externally-visible name for a live entity.
func StableNameFor(sc scene.Adapter, ref scene.EntityRef) string {
	return fmt.Sprintf("%s#%d", sc.DisplayName(ref), sc.Handle(ref))
}

// IdentityTable maps stable names to live entities, with an alias layer for
// entities superseded before the controller saw the reply that renamed them.
// Owned and mutated by the single dispatch goroutine only.
type IdentityTable struct {
	sc      scene.Adapter
	aliases map[string]scene.EntityRef
}

func NewIdentityTable(sc scene.Adapter) *IdentityTable {
	return &IdentityTable{
		sc:      sc,
		aliases: make(map[string]scene.EntityRef),
	}
}

// Resolve returns the live entity for a stable name. Handle lookup comes
// first; a stale handle falls back to the alias layer so that a command
// issued against a pre-supersession name still lands on the replacement.
func (t *IdentityTable) Resolve(name string) (scene.EntityRef, bool) {
	name = strings.TrimSpace(name)
	if _, handle, err := ParseStableName(name); err == nil {
		if ref, ok := t.sc.EntityByHandle(handle); ok {
			return ref, true
		}
	}
	if ref, ok := t.aliases[name]; ok {
		if live, found := t.sc.EntityByHandle(t.sc.Handle(ref)); found {
			return live, true
		}
		delete(t.aliases, name)
	}
	log.Debug().Msgf("bridge.IdentityTable.Resolve no entity name=%q", name)
	return nil, false
}

// ResolveAll resolves names one-to-one in input order, nil for entries that
// do not resolve. Callers decide whether to filter or fail per entity.
func (t *IdentityTable) ResolveAll(names []string) []scene.EntityRef {
	out := make([]scene.EntityRef, len(names))
	for i, name := range names {
		if ref, ok := t.Resolve(name); ok {
			out[i] = ref
		}
	}
	return out
}

// RecordSupersession notes that the entity issued as oldName was replaced by
// replacement. Existing aliases targeting the replaced entity are re-pointed
// so every alias resolves in exactly one hop. old may be nil when the name
// never had a live entity behind it (placeholder names from entity creation).
func (t *IdentityTable) RecordSupersession(oldName string, old, replacement scene.EntityRef) {
	oldName = strings.TrimSpace(oldName)
	if oldName == "" || replacement == nil {
		return
	}
	if old != nil {
		oldHandle := t.sc.Handle(old)
		for name, target := range t.aliases {
			if t.sc.Handle(target) == oldHandle {
				t.aliases[name] = replacement
			}
		}
	}
	t.aliases[oldName] = replacement
	log.Debug().Msgf("bridge.IdentityTable.RecordSupersession old=%q new_handle=%d", oldName, t.sc.Handle(replacement))
}

// PruneDestroyed drops aliases whose target is among the given entities.
// Stale aliases fail to resolve anyway; pruning just keeps the table small.
func (t *IdentityTable) PruneDestroyed(refs []scene.EntityRef) {
	destroyed := make(map[int]struct{}, len(refs))
	for _, ref := range refs {
		if ref != nil {
			destroyed[t.sc.Handle(ref)] = struct{}{}
		}
	}
	for name, target := range t.aliases {
		if _, gone := destroyed[t.sc.Handle(target)]; gone {
			delete(t.aliases, name)
		}
	}
}

// AliasCount reports the current alias layer size.
func (t *IdentityTable) AliasCount() int {
	return len(t.aliases)
}
