package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/lumen/engine/math"
)

func TestAccumulatorFirstTickIsFrameZero(t *testing.T) {
	acc := NewAccumulator(100)
	view := math.NewMat4LookAt(math.NewVec3(4, 4, 4), math.NewVec3Zero(), math.NewVec3Up())

	assert.Equal(t, int32(0), acc.Tick(view, 60))
}

func TestAccumulatorCountsWhileCameraHolds(t *testing.T) {
	acc := NewAccumulator(100)
	view := math.NewMat4LookAt(math.NewVec3(4, 4, 4), math.NewVec3Zero(), math.NewVec3Up())

	for want := int32(0); want < 10; want++ {
		assert.Equal(t, want, acc.Tick(view, 60))
	}
}

func TestAccumulatorResetsOnViewChange(t *testing.T) {
	acc := NewAccumulator(100)
	view := math.NewMat4LookAt(math.NewVec3(4, 4, 4), math.NewVec3Zero(), math.NewVec3Up())

	acc.Tick(view, 60)
	acc.Tick(view, 60)
	acc.Tick(view, 60)

	moved := math.NewMat4LookAt(math.NewVec3(4, 5, 4), math.NewVec3Zero(), math.NewVec3Up())
	assert.Equal(t, int32(0), acc.Tick(moved, 60))
	assert.Equal(t, int32(1), acc.Tick(moved, 60))
}

func TestAccumulatorResetsOnFovChange(t *testing.T) {
	acc := NewAccumulator(100)
	view := math.NewMat4LookAt(math.NewVec3(4, 4, 4), math.NewVec3Zero(), math.NewVec3Up())

	acc.Tick(view, 60)
	acc.Tick(view, 60)

	assert.Equal(t, int32(0), acc.Tick(view, 45))
}

func TestAccumulatorTinyViewChangeStillResets(t *testing.T) {
	acc := NewAccumulator(100)
	view := math.NewMat4Identity()
	acc.Tick(view, 60)
	acc.Tick(view, 60)

	// A single ulp in one element is a different viewpoint.
	nudged := view
	nudged.Data[12] = 1e-45
	assert.Equal(t, int32(0), acc.Tick(nudged, 60))
}

func TestAccumulatorExplicitReset(t *testing.T) {
	acc := NewAccumulator(100)
	view := math.NewMat4Identity()
	acc.Tick(view, 60)
	acc.Tick(view, 60)

	acc.Reset()
	assert.Equal(t, int32(0), acc.Tick(view, 60))
}

func TestAccumulatorConvergenceGate(t *testing.T) {
	acc := NewAccumulator(100)
	view := math.NewMat4Identity()

	for i := 0; i < 200; i++ {
		acc.Tick(view, 60)
	}
	assert.True(t, acc.Converged())

	// The counter keeps advancing past the gate; only dispatching stops.
	assert.Equal(t, int32(200), acc.Tick(view, 60))

	moved := math.NewMat4Translation(math.NewVec3(1, 0, 0))
	acc.Tick(moved, 60)
	assert.False(t, acc.Converged())
}
