package math

/**
 * @brief Transform describes the placement of an object as a translation,
 * a set of Euler rotations and a scale. The local matrix is cached and
 * rebuilt lazily whenever one of the components changes.
 */
type Transform struct {
	Position Vec3
	// Euler angles in radians, applied in X, Y, Z order.
	Rotation Vec3
	Scale    Vec3

	local   Mat4
	isDirty bool
}

func TransformCreate() *Transform {
	return &Transform{
		Scale:   NewVec3One(),
		isDirty: true,
	}
}

func TransformFromPosition(position Vec3) *Transform {
	t := TransformCreate()
	t.Position = position
	return t
}

func TransformFromPositionScale(position, scale Vec3) *Transform {
	t := TransformCreate()
	t.Position = position
	t.Scale = scale
	return t
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.isDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.isDirty = true
}

func (t *Transform) SetRotation(eulerRadians Vec3) {
	t.Rotation = eulerRadians
	t.isDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.isDirty = true
}

/**
 * @brief Returns the local matrix, rebuilding it from the components when
 * they changed since the last call.
 */
func (t *Transform) Local() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	if t.isDirty {
		m := NewMat4Translation(t.Position)
		if t.Rotation != (Vec3{}) {
			m = m.Mul(NewMat4EulerXYZ(t.Rotation.X, t.Rotation.Y, t.Rotation.Z))
		}
		if t.Scale != NewVec3One() && t.Scale != (Vec3{}) {
			m = m.Mul(NewMat4Scale(t.Scale))
		}
		t.local = m
		t.isDirty = false
	}
	return t.local
}
