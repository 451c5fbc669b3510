package systems

import (
	"testing"

	"github.com/pelagos/reef/components"
)

func TestSpatialGrid_FindsNeighborsInRadius(t *testing.T) {
	tw := newTestWorld(t)
	center := tw.spawnKrill(500, 500, components.KindKrill)
	near := tw.spawnKrill(520, 500, components.KindKrill)
	far := tw.spawnKrill(900, 500, components.KindKrill)
	tw.rebuildGrid()

	var dst []Neighbor
	dst = tw.ctx.Grid.QueryRadiusInto(dst, 500, 500, 50, center, tw.posMap)

	found := map[string]bool{}
	for _, n := range dst {
		if n.E == near {
			found["near"] = true
		}
		if n.E == far {
			found["far"] = true
		}
		if n.E == center {
			found["self"] = true
		}
	}
	if !found["near"] {
		t.Error("neighbor within radius should be returned")
	}
	if found["far"] {
		t.Error("entity outside radius must not be returned")
	}
	if found["self"] {
		t.Error("the excluded entity must not be returned")
	}
}

func TestSpatialGrid_NeighborOffsetsAndDistance(t *testing.T) {
	tw := newTestWorld(t)
	center := tw.spawnKrill(500, 500, components.KindKrill)
	tw.spawnKrill(530, 540, components.KindKrill)
	tw.rebuildGrid()

	var dst []Neighbor
	dst = tw.ctx.Grid.QueryRadiusInto(dst, 500, 500, 100, center, tw.posMap)
	if len(dst) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(dst))
	}
	n := dst[0]
	if n.DX != 30 || n.DY != 40 {
		t.Errorf("expected offsets (30, 40), got (%g, %g)", n.DX, n.DY)
	}
	if n.DistSq != 2500 {
		t.Errorf("expected squared distance 2500, got %g", n.DistSq)
	}
}

func TestSpatialGrid_ClearEmptiesIndex(t *testing.T) {
	tw := newTestWorld(t)
	center := tw.spawnKrill(500, 500, components.KindKrill)
	tw.spawnKrill(510, 500, components.KindKrill)
	tw.rebuildGrid()

	tw.ctx.Grid.Clear()
	var dst []Neighbor
	dst = tw.ctx.Grid.QueryRadiusInto(dst, 500, 500, 100, center, tw.posMap)
	if len(dst) != 0 {
		t.Errorf("cleared grid should return nothing, got %d", len(dst))
	}
}

func TestSpatialGrid_QueryNearEdgeDoesNotPanic(t *testing.T) {
	tw := newTestWorld(t)
	center := tw.spawnKrill(1, 1, components.KindKrill)
	tw.spawnKrill(5, 5, components.KindKrill)
	tw.rebuildGrid()

	// A radius spilling past the walls is clamped, not wrapped.
	var dst []Neighbor
	dst = tw.ctx.Grid.QueryRadiusInto(dst, 1, 1, 200, center, tw.posMap)
	if len(dst) != 1 {
		t.Errorf("expected the one in-bounds neighbor, got %d", len(dst))
	}
}

func TestSpatialGrid_ResultCountCapped(t *testing.T) {
	tw := newTestWorld(t)
	center := tw.spawnKrill(500, 500, components.KindKrill)
	for i := 0; i < MaxQueryResults+40; i++ {
		tw.spawnKrill(500+float32(i%12), 500+float32(i/12), components.KindKrill)
	}
	tw.rebuildGrid()

	var dst []Neighbor
	dst = tw.ctx.Grid.QueryRadiusInto(dst, 500, 500, 100, center, tw.posMap)
	if len(dst) > MaxQueryResults {
		t.Errorf("result count must be capped at %d, got %d", MaxQueryResults, len(dst))
	}
}
