package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformDefaultsToIdentity(t *testing.T) {
	tr := TransformCreate()
	assert.True(t, tr.Local().Compare(NewMat4Identity(), K_FLOAT_EPSILON))
}

func TestTransformTranslation(t *testing.T) {
	tr := TransformFromPosition(NewVec3(1, 2, 3))
	local := tr.Local()
	assert.InDelta(t, 1.0, local.Data[12], float64(K_FLOAT_EPSILON))
	assert.InDelta(t, 2.0, local.Data[13], float64(K_FLOAT_EPSILON))
	assert.InDelta(t, 3.0, local.Data[14], float64(K_FLOAT_EPSILON))
}

func TestTransformScale(t *testing.T) {
	tr := TransformFromPositionScale(NewVec3Zero(), NewVec3(2, 2, 2))
	expected := NewMat4Scale(NewVec3(2, 2, 2))
	assert.True(t, tr.Local().Compare(expected, K_FLOAT_EPSILON))
}

func TestTransformRebuildsAfterChange(t *testing.T) {
	tr := TransformCreate()
	_ = tr.Local()

	tr.Translate(NewVec3(5, 0, 0))
	local := tr.Local()
	assert.InDelta(t, 5.0, local.Data[12], float64(K_FLOAT_EPSILON))

	tr.SetPosition(NewVec3Zero())
	assert.True(t, tr.Local().Compare(NewMat4Identity(), K_FLOAT_EPSILON))
}

func TestTransformRotationMatchesEulerMatrix(t *testing.T) {
	angle := DegToRad(90)
	tr := TransformCreate()
	tr.SetRotation(NewVec3(0, angle, 0))

	expected := NewMat4Translation(NewVec3Zero()).Mul(NewMat4EulerXYZ(0, angle, 0))
	assert.True(t, tr.Local().Compare(expected, K_FLOAT_EPSILON))
}

func TestNilTransformIsIdentity(t *testing.T) {
	var tr *Transform
	assert.True(t, tr.Local().Compare(NewMat4Identity(), K_FLOAT_EPSILON))
}
