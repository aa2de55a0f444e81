package scene

import (
	"testing"

	"github.com/scenebridge/bridgectl/internal/testutil/testlog"
)

func TestCreateEntityAssignsFreshHandles(t *testing.T) {
	testlog.Start(t)
	s := NewMemScene("scene")
	a, err := s.CreateEntity(EntitySpec{Name: "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, _ := s.CreateEntity(EntitySpec{Name: "b"})
	if a.Handle() == b.Handle() {
		t.Fatalf("handles must be unique")
	}

	// Deleting an entity must not free its handle for reuse.
	s.Delete([]EntityRef{b})
	c, _ := s.CreateEntity(EntitySpec{Name: "c"})
	if c.Handle() == b.Handle() {
		t.Fatalf("handle %d reused after delete", b.Handle())
	}
}

func TestCreateEntityDefaults(t *testing.T) {
	testlog.Start(t)
	s := NewMemScene("scene")
	ref, _ := s.CreateEntity(EntitySpec{})
	if s.DisplayName(ref) != "entity" {
		t.Fatalf("unexpected default name: %q", s.DisplayName(ref))
	}
	if got := s.Transform(ref).Scale; got != (Vec3{1, 1, 1}) {
		t.Fatalf("zero scale must normalize to identity: %+v", got)
	}
}

func TestReplaceMeshCarriesStateToFreshHandle(t *testing.T) {
	testlog.Start(t)
	s := NewMemScene("scene")
	parent, _ := s.CreateEntity(EntitySpec{Name: "root"})
	old, _ := s.CreateEntity(EntitySpec{Name: "plate", Location: Vec3{1, 2, 3}})
	child, _ := s.CreateEntity(EntitySpec{Name: "leaf"})
	s.Parent(parent, []EntityRef{old})
	s.Parent(old, []EntityRef{child})
	s.SetHidden([]EntityRef{old}, true)
	s.SetSelection([]EntityRef{old})

	repl, err := s.ReplaceMesh(old, "assets/props/new_plate.mesh")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if repl.Handle() == old.Handle() {
		t.Fatalf("replacement must get a fresh handle")
	}
	if _, ok := s.EntityByHandle(old.Handle()); ok {
		t.Fatalf("original must be destroyed")
	}
	if s.DisplayName(repl) != "new_plate" {
		t.Fatalf("name should derive from the asset: %q", s.DisplayName(repl))
	}
	if got := s.Transform(repl).Position; got != (Vec3{1, 2, 3}) {
		t.Fatalf("transform not carried: %+v", got)
	}
	if !s.IsHidden(repl) {
		t.Fatalf("hidden flag not carried")
	}
	if p, ok := s.ParentOf(repl); !ok || p.Handle() != parent.Handle() {
		t.Fatalf("parent link not carried")
	}
	if p, ok := s.ParentOf(child); !ok || p.Handle() != repl.Handle() {
		t.Fatalf("children not reparented to the replacement")
	}
	if len(s.Selection()) != 0 {
		t.Fatalf("stale handle must leave the selection")
	}
}

func TestDeleteReparentsChildrenToRoot(t *testing.T) {
	testlog.Start(t)
	s := NewMemScene("scene")
	parent, _ := s.CreateEntity(EntitySpec{Name: "root"})
	child, _ := s.CreateEntity(EntitySpec{Name: "leaf"})
	s.Parent(parent, []EntityRef{child})

	s.Delete([]EntityRef{parent})
	if _, ok := s.ParentOf(child); ok {
		t.Fatalf("orphaned child should be unparented")
	}
}

func TestDescendantsWalksTransitively(t *testing.T) {
	testlog.Start(t)
	s := NewMemScene("scene")
	root, _ := s.CreateEntity(EntitySpec{Name: "root"})
	mid, _ := s.CreateEntity(EntitySpec{Name: "mid"})
	leaf, _ := s.CreateEntity(EntitySpec{Name: "leaf"})
	other, _ := s.CreateEntity(EntitySpec{Name: "other"})
	s.Parent(root, []EntityRef{mid})
	s.Parent(mid, []EntityRef{leaf})

	got := s.Descendants(root)
	if len(got) != 2 {
		t.Fatalf("expected 2 descendants, got %d", len(got))
	}
	for _, ref := range got {
		if ref.Handle() == other.Handle() {
			t.Fatalf("unrelated entity in descendants")
		}
	}
}

func TestRaytraceGroundPlane(t *testing.T) {
	testlog.Start(t)
	s := NewMemScene("scene")
	if hit, ok := s.Raytrace(Vec3{4, 6, 10}, Vec3{0, 0, -1}, 100, nil); !ok || hit != (Vec3{4, 6, 0}) {
		t.Fatalf("expected ground hit, got %+v ok=%v", hit, ok)
	}
	if _, ok := s.Raytrace(Vec3{0, 0, 10}, Vec3{0, 0, -1}, 5, nil); ok {
		t.Fatalf("hit beyond ray distance must miss")
	}
	if _, ok := s.Raytrace(Vec3{0, 0, 10}, Vec3{0, 0, 1}, 100, nil); ok {
		t.Fatalf("upward ray must miss the ground plane")
	}
}

func TestOpenSceneUpdatesNameAndRejectsBlank(t *testing.T) {
	testlog.Start(t)
	s := NewMemScene("untitled")
	if err := s.OpenScene("   "); err == nil {
		t.Fatalf("blank path must be rejected")
	}
	if err := s.OpenScene("scenes/hall.max"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.SceneName() != "scenes/hall.max" {
		t.Fatalf("unexpected scene name: %q", s.SceneName())
	}
}
