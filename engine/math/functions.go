package math

import (
	m "math"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief A multiplier used to convert degrees to radians. */
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	/** @brief A multiplier used to convert radians to degrees. */
	K_RAD2DEG_MULTIPLIER float32 = 180.0 / K_PI
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

/**
 * Note that these are here in order to prevent having to import the
 * entire <math.h> everywhere.
 */
func ksin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func kcos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func ktan(x float32) float32 {
	return float32(m.Tan(float64(x)))
}

func ksqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func kabs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

func kpow(x, y float32) float32 {
	return float32(m.Pow(float64(x), float64(y)))
}

// DegToRad converts the provided degrees to radians.
func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

// RadToDeg converts the provided radians to degrees.
func RadToDeg(radians float32) float32 {
	return radians * K_RAD2DEG_MULTIPLIER
}

// ------------------------------------------
// Vector 2
// ------------------------------------------

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec2Zero() Vec2 {
	return Vec2{}
}

// ------------------------------------------
// Vector 3
// ------------------------------------------

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec3One() Vec3 {
	return Vec3{X: 1.0, Y: 1.0, Z: 1.0}
}

func NewVec3Up() Vec3 {
	return Vec3{X: 0, Y: 1.0, Z: 0}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{
		X: v.X * scalar,
		Y: v.Y * scalar,
		Z: v.Z * scalar,
	}
}

func (v Vec3) AddScalar(scalar float32) Vec3 {
	return Vec3{
		X: v.X + scalar,
		Y: v.Y + scalar,
		Z: v.Z + scalar,
	}
}

func (v Vec3) SubScalar(scalar float32) Vec3 {
	return Vec3{
		X: v.X - scalar,
		Y: v.Y - scalar,
		Z: v.Z - scalar,
	}
}

func (v Vec3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Length() float32 {
	return ksqrt(v.LengthSquared())
}

func (v *Vec3) Normalize() {
	length := v.Length()
	v.X /= length
	v.Y /= length
	v.Z /= length
}

func (v Vec3) Normalized() Vec3 {
	v.Normalize()
	return v
}

func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

/**
 * @brief Compares all elements of this vector against the ones of other
 * and ensures the difference is less than tolerance.
 */
func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	if kabs(v.X-other.X) > tolerance {
		return false
	}
	if kabs(v.Y-other.Y) > tolerance {
		return false
	}
	if kabs(v.Z-other.Z) > tolerance {
		return false
	}
	return true
}

// Pow raises every component of this vector to the provided exponent.
func (v Vec3) Pow(exponent float32) Vec3 {
	return Vec3{
		X: kpow(v.X, exponent),
		Y: kpow(v.Y, exponent),
		Z: kpow(v.Z, exponent),
	}
}

// ------------------------------------------
// Vector 4
// ------------------------------------------

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

func NewVec4FromVec3(v Vec3, w float32) Vec4 {
	return Vec4{X: v.X, Y: v.Y, Z: v.Z, W: w}
}

// ------------------------------------------
// Matrix 4x4
// ------------------------------------------

/**
 * @brief Creates and returns an identity matrix.
 */
func NewMat4Identity() Mat4 {
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0
	out_matrix.Data[5] = 1.0
	out_matrix.Data[10] = 1.0
	out_matrix.Data[15] = 1.0
	return out_matrix
}

/**
 * @brief Returns the result of multiplying this matrix and other.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out_matrix := NewMat4Identity()

	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out_matrix.Data[row*4+col] = sum
		}
	}

	return out_matrix
}

/**
 * @brief Creates and returns a perspective matrix. Typically used to render 3d scenes.
 *
 * @param fov_radians The field of view in radians.
 * @param aspect_ratio The aspect ratio.
 * @param near_clip The near clipping plane distance.
 * @param far_clip The far clipping plane distance.
 * @return A new perspective matrix.
 */
func NewMat4Perspective(fov_radians, aspect_ratio, near_clip, far_clip float32) Mat4 {
	half_tan_fov := ktan(fov_radians * 0.5)
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0 / (aspect_ratio * half_tan_fov)
	out_matrix.Data[5] = 1.0 / half_tan_fov
	out_matrix.Data[10] = -((far_clip + near_clip) / (far_clip - near_clip))
	out_matrix.Data[11] = -1.0
	out_matrix.Data[14] = -((2.0 * far_clip * near_clip) / (far_clip - near_clip))
	return out_matrix
}

/**
 * @brief Creates and returns a look-at matrix, or a matrix looking
 * at target from the perspective of position.
 *
 * @param position The position of the matrix.
 * @param target The position to "look at".
 * @param up The up vector.
 * @return A matrix looking at target from the perspective of position.
 */
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	out_matrix := Mat4{}
	z_axis := Vec3{}
	z_axis.X = target.X - position.X
	z_axis.Y = target.Y - position.Y
	z_axis.Z = target.Z - position.Z

	z_axis.Normalize()
	x_axis := up.Cross(z_axis)
	x_axis.Normalize()
	y_axis := z_axis.Cross(x_axis)

	out_matrix.Data[0] = x_axis.X
	out_matrix.Data[1] = y_axis.X
	out_matrix.Data[2] = -z_axis.X
	out_matrix.Data[3] = 0
	out_matrix.Data[4] = x_axis.Y
	out_matrix.Data[5] = y_axis.Y
	out_matrix.Data[6] = -z_axis.Y
	out_matrix.Data[7] = 0
	out_matrix.Data[8] = x_axis.Z
	out_matrix.Data[9] = y_axis.Z
	out_matrix.Data[10] = -z_axis.Z
	out_matrix.Data[11] = 0
	out_matrix.Data[12] = -x_axis.Dot(position)
	out_matrix.Data[13] = -y_axis.Dot(position)
	out_matrix.Data[14] = z_axis.Dot(position)
	out_matrix.Data[15] = 1.0

	return out_matrix
}

/**
 * @brief Returns a transposed copy of the provided matrix (rows->colums)
 */
func NewMat4Transposed(matrix Mat4) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[0] = matrix.Data[0]
	out_matrix.Data[1] = matrix.Data[4]
	out_matrix.Data[2] = matrix.Data[8]
	out_matrix.Data[3] = matrix.Data[12]
	out_matrix.Data[4] = matrix.Data[1]
	out_matrix.Data[5] = matrix.Data[5]
	out_matrix.Data[6] = matrix.Data[9]
	out_matrix.Data[7] = matrix.Data[13]
	out_matrix.Data[8] = matrix.Data[2]
	out_matrix.Data[9] = matrix.Data[6]
	out_matrix.Data[10] = matrix.Data[10]
	out_matrix.Data[11] = matrix.Data[14]
	out_matrix.Data[12] = matrix.Data[3]
	out_matrix.Data[13] = matrix.Data[7]
	out_matrix.Data[14] = matrix.Data[11]
	out_matrix.Data[15] = matrix.Data[15]
	return out_matrix
}

/**
 * @brief Creates and returns an inverse of the provided matrix.
 */
func (mt Mat4) Inverse() Mat4 {
	m := mt.Data

	t0 := m[10] * m[15]
	t1 := m[14] * m[11]
	t2 := m[6] * m[15]
	t3 := m[14] * m[7]
	t4 := m[6] * m[11]
	t5 := m[10] * m[7]
	t6 := m[2] * m[15]
	t7 := m[14] * m[3]
	t8 := m[2] * m[11]
	t9 := m[10] * m[3]
	t10 := m[2] * m[7]
	t11 := m[6] * m[3]
	t12 := m[8] * m[13]
	t13 := m[12] * m[9]
	t14 := m[4] * m[13]
	t15 := m[12] * m[5]
	t16 := m[4] * m[9]
	t17 := m[8] * m[5]
	t18 := m[0] * m[13]
	t19 := m[12] * m[1]
	t20 := m[0] * m[9]
	t21 := m[8] * m[1]
	t22 := m[0] * m[5]
	t23 := m[4] * m[1]

	out_matrix := Mat4{}
	o := &out_matrix.Data

	o[0] = (t0*m[5] + t3*m[9] + t4*m[13]) - (t1*m[5] + t2*m[9] + t5*m[13])
	o[1] = (t1*m[1] + t6*m[9] + t9*m[13]) - (t0*m[1] + t7*m[9] + t8*m[13])
	o[2] = (t2*m[1] + t7*m[5] + t10*m[13]) - (t3*m[1] + t6*m[5] + t11*m[13])
	o[3] = (t5*m[1] + t8*m[5] + t11*m[9]) - (t4*m[1] + t9*m[5] + t10*m[9])

	d := 1.0 / (m[0]*o[0] + m[4]*o[1] + m[8]*o[2] + m[12]*o[3])

	o[0] = d * o[0]
	o[1] = d * o[1]
	o[2] = d * o[2]
	o[3] = d * o[3]
	o[4] = d * ((t1*m[4] + t2*m[8] + t5*m[12]) - (t0*m[4] + t3*m[8] + t4*m[12]))
	o[5] = d * ((t0*m[0] + t7*m[8] + t8*m[12]) - (t1*m[0] + t6*m[8] + t9*m[12]))
	o[6] = d * ((t3*m[0] + t6*m[4] + t11*m[12]) - (t2*m[0] + t7*m[4] + t10*m[12]))
	o[7] = d * ((t4*m[0] + t9*m[4] + t10*m[8]) - (t5*m[0] + t8*m[4] + t11*m[8]))
	o[8] = d * ((t12*m[7] + t15*m[11] + t16*m[15]) - (t13*m[7] + t14*m[11] + t17*m[15]))
	o[9] = d * ((t13*m[3] + t18*m[11] + t21*m[15]) - (t12*m[3] + t19*m[11] + t20*m[15]))
	o[10] = d * ((t14*m[3] + t19*m[7] + t22*m[15]) - (t15*m[3] + t18*m[7] + t23*m[15]))
	o[11] = d * ((t17*m[3] + t20*m[7] + t23*m[11]) - (t16*m[3] + t21*m[7] + t22*m[11]))
	o[12] = d * ((t14*m[10] + t17*m[14] + t13*m[6]) - (t16*m[14] + t12*m[6] + t15*m[10]))
	o[13] = d * ((t20*m[14] + t12*m[2] + t19*m[10]) - (t18*m[10] + t21*m[14] + t13*m[2]))
	o[14] = d * ((t18*m[6] + t23*m[14] + t15*m[2]) - (t22*m[14] + t14*m[2] + t19*m[6]))
	o[15] = d * ((t22*m[10] + t16*m[2] + t21*m[6]) - (t20*m[6] + t23*m[10] + t17*m[2]))

	return out_matrix
}

/**
 * @brief Returns the matrix used to correct normal vectors under this
 * transformation: the transpose of the inverse. Identical to the transform
 * itself for rigid motions, it differs as soon as the scale is non-uniform.
 */
func (mt Mat4) NormalMatrix() Mat4 {
	return NewMat4Transposed(mt.Inverse())
}

/**
 * @brief Creates and returns a translation matrix from the given position.
 */
func NewMat4Translation(position Vec3) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[12] = position.X
	out_matrix.Data[13] = position.Y
	out_matrix.Data[14] = position.Z
	return out_matrix
}

/**
 * @brief Returns a scale matrix using the provided scale.
 */
func NewMat4Scale(scale Vec3) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[0] = scale.X
	out_matrix.Data[5] = scale.Y
	out_matrix.Data[10] = scale.Z
	return out_matrix
}

/**
 * @brief Creates a rotation matrix from the provided x angle.
 */
func NewMat4EulerX(angle_radians float32) Mat4 {
	out_matrix := NewMat4Identity()
	c := kcos(angle_radians)
	s := ksin(angle_radians)

	out_matrix.Data[5] = c
	out_matrix.Data[6] = s
	out_matrix.Data[9] = -s
	out_matrix.Data[10] = c
	return out_matrix
}

/**
 * @brief Creates a rotation matrix from the provided y angle.
 */
func NewMat4EulerY(angle_radians float32) Mat4 {
	out_matrix := NewMat4Identity()
	c := kcos(angle_radians)
	s := ksin(angle_radians)

	out_matrix.Data[0] = c
	out_matrix.Data[2] = -s
	out_matrix.Data[8] = s
	out_matrix.Data[10] = c
	return out_matrix
}

/**
 * @brief Creates a rotation matrix from the provided z angle.
 */
func NewMat4EulerZ(angle_radians float32) Mat4 {
	out_matrix := NewMat4Identity()

	c := kcos(angle_radians)
	s := ksin(angle_radians)

	out_matrix.Data[0] = c
	out_matrix.Data[1] = s
	out_matrix.Data[4] = -s
	out_matrix.Data[5] = c
	return out_matrix
}

/**
 * @brief Creates a rotation matrix from the provided x, y and z axis rotations.
 */
func NewMat4EulerXYZ(x_radians, y_radians, z_radians float32) Mat4 {
	rx := NewMat4EulerX(x_radians)
	ry := NewMat4EulerY(y_radians)
	rz := NewMat4EulerZ(z_radians)
	out_matrix := rx.Mul(ry)
	out_matrix = out_matrix.Mul(rz)
	return out_matrix
}

/**
 * @brief Compares all elements of this matrix against the ones of other
 * and ensures the difference is less than tolerance.
 */
func (mt Mat4) Compare(other Mat4, tolerance float32) bool {
	for i := 0; i < 16; i++ {
		if kabs(mt.Data[i]-other.Data[i]) > tolerance {
			return false
		}
	}
	return true
}
