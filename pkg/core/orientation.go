// pkg/core/orientation.go
package core

import "math"

// Mat3 is a rotation matrix whose columns are the body's forward, left and up axes
// expressed in world coordinates. Element [i][j] is row i, column j.
type Mat3 [3][3]float64

// Identity is the orientation of a car facing +x with its roof up.
var Identity = Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func (m Mat3) col(j int) Vec3 { return Vec3{X: m[0][j], Y: m[1][j], Z: m[2][j]} }

func (m Mat3) Forward() Vec3 { return m.col(0) }
func (m Mat3) Left() Vec3    { return m.col(1) }
func (m Mat3) Up() Vec3      { return m.col(2) }

// FromColumns assembles a matrix from its forward, left and up axes.
func FromColumns(f, l, u Vec3) Mat3 {
	return Mat3{
		{f.X, l.X, u.X},
		{f.Y, l.Y, u.Y},
		{f.Z, l.Z, u.Z},
	}
}

// FromRotator converts the host's pitch/yaw/roll (radians) into an orientation matrix.
func FromRotator(pitch, yaw, roll float64) Mat3 {
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	cr, sr := math.Cos(roll), math.Sin(roll)
	return Mat3{
		{cp * cy, cy*sp*sr - cr*sy, -cr*cy*sp - sr*sy},
		{cp * sy, sy*sp*sr + cr*cy, -cr*sy*sp + sr*cy},
		{sp, -cp * sr, cp * cr},
	}
}

// LookAt builds an orientation whose forward axis points along direction and whose
// up axis is as close to up as possible.
func LookAt(direction, up Vec3) Mat3 {
	f := Normalize(direction)
	if Norm(f) == 0 {
		return Identity
	}
	l := Normalize(Cross(up, f))
	if Norm(l) == 0 {
		l = Normalize(Cross(Vec3{X: 1}, f))
		if Norm(l) == 0 {
			l = Normalize(Cross(Vec3{Y: 1}, f))
		}
	}
	u := Cross(f, l)
	return FromColumns(f, l, u)
}

// Transpose returns the inverse rotation.
func (m Mat3) Transpose() Mat3 {
	var t Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// Mul returns m*o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// Apply rotates v from body coordinates into world coordinates.
func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Local expresses world vector v in body coordinates (forward, left, up).
func (m Mat3) Local(v Vec3) Vec3 {
	return Vec3{X: Dot(v, m.Forward()), Y: Dot(v, m.Left()), Z: Dot(v, m.Up())}
}

// Angle returns the rotation angle separating two orientations.
func Angle(a, b Mat3) float64 {
	r := a.Transpose().Mul(b)
	tr := r[0][0] + r[1][1] + r[2][2]
	return math.Acos(Clamp((tr-1)/2, -1, 1))
}

// RotationVector returns the axis-angle vector of m (axis scaled by angle).
func RotationVector(m Mat3) Vec3 {
	tr := m[0][0] + m[1][1] + m[2][2]
	theta := math.Acos(Clamp((tr-1)/2, -1, 1))
	axis := Vec3{X: m[2][1] - m[1][2], Y: m[0][2] - m[2][0], Z: m[1][0] - m[0][1]}
	s := math.Sin(theta)
	if s < 1e-6 {
		if theta < 1e-3 {
			return Scale(axis, 0.5)
		}
		// Half-turn: recover the axis from the diagonal.
		x := math.Sqrt(math.Max(0, (m[0][0]+1)/2))
		y := math.Sqrt(math.Max(0, (m[1][1]+1)/2))
		z := math.Sqrt(math.Max(0, (m[2][2]+1)/2))
		if m[0][1] < 0 {
			y = -y
		}
		if m[0][2] < 0 {
			z = -z
		}
		return Scale(Normalize(Vec3{X: x, Y: y, Z: z}), theta)
	}
	return Scale(axis, theta/(2*s))
}

// AxisAngle builds the rotation that turns by |w| radians around w.
func AxisAngle(w Vec3) Mat3 {
	theta := Norm(w)
	if theta < 1e-9 {
		return Identity
	}
	k := Scale(w, 1/theta)
	c, s := math.Cos(theta), math.Sin(theta)
	v := 1 - c
	return Mat3{
		{c + k.X*k.X*v, k.X*k.Y*v - k.Z*s, k.X*k.Z*v + k.Y*s},
		{k.Y*k.X*v + k.Z*s, c + k.Y*k.Y*v, k.Y*k.Z*v - k.X*s},
		{k.Z*k.X*v - k.Y*s, k.Z*k.Y*v + k.X*s, c + k.Z*k.Z*v},
	}
}
