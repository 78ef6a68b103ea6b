package collision

import (
	"testing"

	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/world"
)

func TestHitTestFiltersByMask(t *testing.T) {
	w := NewWorld()
	kitten := uuid.New()
	toy := uuid.New()
	other := uuid.New()

	w.Set(kitten, world.BoxAt(world.V(100, 100), world.V(24, 24)), HitKitten)
	w.Set(toy, world.BoxAt(world.V(110, 100), world.V(32, 32)), HitToy)
	w.Set(other, world.BoxAt(world.V(105, 100), world.V(24, 24)), HitKitten)

	query := world.BoxAt(world.V(100, 100), world.V(24, 24))

	hits := w.HitTest(query, HitToy, kitten)
	if len(hits) != 1 || hits[0] != toy {
		t.Fatalf("toy hits = %v, want [%v]", hits, toy)
	}

	hits = w.HitTest(query, HitKitten, kitten)
	if len(hits) != 1 || hits[0] != other {
		t.Fatalf("kitten hits = %v, want [%v]", hits, other)
	}

	hits = w.HitTest(query, HitKitten|HitToy, uuid.Nil)
	if len(hits) != 3 {
		t.Fatalf("all hits = %d, want 3", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i-1].String() > hits[i].String() {
			t.Fatal("hits not ordered by ref")
		}
	}
}

func TestRemove(t *testing.T) {
	w := NewWorld()
	ref := uuid.New()
	w.Set(ref, world.BoxAt(world.V(0, 0), world.V(10, 10)), HitToy)
	w.Remove(ref)
	if w.Len() != 0 {
		t.Fatalf("Len = %d after remove", w.Len())
	}
	if hits := w.HitTest(world.BoxAt(world.V(0, 0), world.V(10, 10)), HitToy, uuid.Nil); len(hits) != 0 {
		t.Fatalf("hits after remove = %v", hits)
	}
}
