package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-5

func TestMat4MulIdentity(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3)).Mul(NewMat4EulerY(0.7))
	assert.True(t, m.Mul(NewMat4Identity()).Compare(m, tolerance))
	assert.True(t, NewMat4Identity().Mul(m).Compare(m, tolerance))
}

func TestMat4Inverse(t *testing.T) {
	m := NewMat4Translation(NewVec3(4, -2, 9)).
		Mul(NewMat4EulerXYZ(0.3, -1.2, 0.5)).
		Mul(NewMat4Scale(NewVec3(2, 2, 2)))
	id := m.Mul(m.Inverse())
	assert.True(t, id.Compare(NewMat4Identity(), tolerance))
}

func TestNormalMatrixIsTransposeOfInverse(t *testing.T) {
	cases := map[string]Mat4{
		"identity":         NewMat4Identity(),
		"translation only": NewMat4Translation(NewVec3(5, -3, 2)),
		// The case normal correction exists for: a non-uniform scale, where
		// the normal matrix must differ from the transform itself.
		"non-uniform scale": NewMat4Scale(NewVec3(1, 2, 4)),
	}

	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			got := m.NormalMatrix()
			want := NewMat4Transposed(m.Inverse())
			require.True(t, got.Compare(want, tolerance))
		})
	}
}

func TestNormalMatrixNonUniformScaleDiffers(t *testing.T) {
	m := NewMat4Scale(NewVec3(1, 2, 4))
	assert.False(t, m.NormalMatrix().Compare(m, tolerance))

	// Rigid motions are their own normal matrix up to the translation row.
	r := NewMat4EulerZ(1.1)
	assert.True(t, r.NormalMatrix().Compare(r, tolerance))
}

func TestVec3Ops(t *testing.T) {
	v := NewVec3(3, 0, 4)
	assert.InDelta(t, 5.0, float64(v.Length()), tolerance)

	n := v.Normalized()
	assert.InDelta(t, 1.0, float64(n.Length()), tolerance)

	up := NewVec3(0, 1, 0)
	fwd := NewVec3(0, 0, 1)
	assert.True(t, up.Cross(fwd).Compare(NewVec3(1, 0, 0), tolerance))
	assert.InDelta(t, 0.0, float64(up.Dot(fwd)), tolerance)
}

func TestVec3Pow(t *testing.T) {
	v := NewVec3(4, 9, 1).Pow(0.5)
	assert.True(t, v.Compare(NewVec3(2, 3, 1), tolerance))
}

func TestDegRadRoundTrip(t *testing.T) {
	assert.InDelta(t, 60.0, float64(RadToDeg(DegToRad(60))), tolerance)
	assert.InDelta(t, float64(K_PI), float64(DegToRad(180)), tolerance)
}
