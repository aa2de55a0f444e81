package bridge

import (
	"testing"

	"github.com/scenebridge/bridgectl/internal/scene"
	"github.com/scenebridge/bridgectl/internal/testutil/testlog"
)

func TestParseStableName(t *testing.T) {
	testlog.Start(t)
	display, handle, err := ParseStableName("crate_01#42")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if display != "crate_01" || handle != 42 {
		t.Fatalf("unexpected parse: display=%q handle=%d", display, handle)
	}

	// Display names may contain '#'; only the trailing one delimits the handle.
	display, handle, err = ParseStableName("room#2_wall#7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if display != "room#2_wall" || handle != 7 {
		t.Fatalf("unexpected parse: display=%q handle=%d", display, handle)
	}

	if _, _, err := ParseStableName("no-handle"); err == nil {
		t.Fatalf("expected error for missing handle")
	}
	if _, _, err := ParseStableName("bad#handle"); err == nil {
		t.Fatalf("expected error for non-numeric handle")
	}
}

func TestResolveByHandleIgnoresDisplayName(t *testing.T) {
	testlog.Start(t)
	sc := scene.NewMemScene("scene")
	ref, err := sc.CreateEntity(scene.EntitySpec{Name: "crate"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	table := NewIdentityTable(sc)

	name := StableNameFor(sc, ref)
	got, ok := table.Resolve(name)
	if !ok || sc.Handle(got) != sc.Handle(ref) {
		t.Fatalf("resolve failed for %q", name)
	}

	// The display half is cosmetic: a wrong display name with the right
	// handle still resolves, a right display name with a stale handle fails.
	got, ok = table.Resolve("renamed#1")
	if !ok || sc.Handle(got) != sc.Handle(ref) {
		t.Fatalf("handle lookup should ignore display name")
	}
	if _, ok := table.Resolve("crate#999"); ok {
		t.Fatalf("stale handle must not resolve")
	}
}

func TestResolveAllPreservesOrderWithNilHoles(t *testing.T) {
	testlog.Start(t)
	sc := scene.NewMemScene("scene")
	a, _ := sc.CreateEntity(scene.EntitySpec{Name: "a"})
	b, _ := sc.CreateEntity(scene.EntitySpec{Name: "b"})
	table := NewIdentityTable(sc)

	refs := table.ResolveAll([]string{
		StableNameFor(sc, a),
		"missing#999",
		StableNameFor(sc, b),
	})
	if len(refs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(refs))
	}
	if refs[0] == nil || sc.Handle(refs[0]) != sc.Handle(a) {
		t.Fatalf("first entry mismatched")
	}
	if refs[1] != nil {
		t.Fatalf("unresolvable entry should be nil")
	}
	if refs[2] == nil || sc.Handle(refs[2]) != sc.Handle(b) {
		t.Fatalf("third entry mismatched")
	}
}

func TestSupersessionResolvesOldName(t *testing.T) {
	testlog.Start(t)
	sc := scene.NewMemScene("scene")
	old, _ := sc.CreateEntity(scene.EntitySpec{Name: "plate"})
	table := NewIdentityTable(sc)
	oldName := StableNameFor(sc, old)

	repl, err := sc.ReplaceMesh(old, "assets/new_plate.mesh")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	table.RecordSupersession(oldName, old, repl)

	got, ok := table.Resolve(oldName)
	if !ok || sc.Handle(got) != sc.Handle(repl) {
		t.Fatalf("old name should resolve to replacement")
	}
}

func TestSupersessionChainsStayOneHop(t *testing.T) {
	testlog.Start(t)
	sc := scene.NewMemScene("scene")
	first, _ := sc.CreateEntity(scene.EntitySpec{Name: "plate"})
	table := NewIdentityTable(sc)
	firstName := StableNameFor(sc, first)

	second, _ := sc.ReplaceMesh(first, "assets/v2.mesh")
	table.RecordSupersession(firstName, first, second)
	secondName := StableNameFor(sc, second)

	third, _ := sc.ReplaceMesh(second, "assets/v3.mesh")
	table.RecordSupersession(secondName, second, third)

	// Both historical names resolve directly to the live entity: the alias
	// recorded for the first supersession was re-pointed, not chained.
	for _, name := range []string{firstName, secondName} {
		got, ok := table.Resolve(name)
		if !ok || sc.Handle(got) != sc.Handle(third) {
			t.Fatalf("name %q should resolve to live entity in one hop", name)
		}
	}
}

func TestPruneDestroyedDropsAliases(t *testing.T) {
	testlog.Start(t)
	sc := scene.NewMemScene("scene")
	old, _ := sc.CreateEntity(scene.EntitySpec{Name: "plate"})
	table := NewIdentityTable(sc)
	oldName := StableNameFor(sc, old)

	repl, _ := sc.ReplaceMesh(old, "assets/new.mesh")
	table.RecordSupersession(oldName, old, repl)
	if table.AliasCount() != 1 {
		t.Fatalf("expected 1 alias, got %d", table.AliasCount())
	}

	table.PruneDestroyed([]scene.EntityRef{repl})
	sc.Delete([]scene.EntityRef{repl})
	if table.AliasCount() != 0 {
		t.Fatalf("expected aliases pruned, got %d", table.AliasCount())
	}
	if _, ok := table.Resolve(oldName); ok {
		t.Fatalf("alias to destroyed entity must not resolve")
	}
}

func TestResolutionStableWithoutInterveningMutation(t *testing.T) {
	testlog.Start(t)
	sc := scene.NewMemScene("scene")
	ref, _ := sc.CreateEntity(scene.EntitySpec{Name: "anchor"})
	table := NewIdentityTable(sc)
	name := StableNameFor(sc, ref)

	firstRef, ok := table.Resolve(name)
	if !ok {
		t.Fatalf("initial resolve failed")
	}
	for i := 0; i < 10; i++ {
		got, ok := table.Resolve(name)
		if !ok || sc.Handle(got) != sc.Handle(firstRef) {
			t.Fatalf("resolution changed without mutation on attempt %d", i)
		}
	}
}
