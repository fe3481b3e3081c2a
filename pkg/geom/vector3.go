// Package geom holds the composite value types a schema can carry:
// three-component vectors and coordinate frames.
package geom

import "math"

// Vector3 is a 3-component vector.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func NewVector3(x, y, z float64) Vector3 { return Vector3{X: x, Y: y, Z: z} }

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vector3) Scale(s float64) Vector3 { return Vector3{v.X * s, v.Y * s, v.Z * s} }

func (v Vector3) Dot(o Vector3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3) Magnitude() float64 { return math.Sqrt(v.Dot(v)) }

// Unit returns v scaled to length 1. The zero vector stays zero.
func (v Vector3) Unit() Vector3 {
	m := v.Magnitude()
	if m == 0 {
		return v
	}
	return v.Scale(1 / m)
}

// Array returns the components in x, y, z order.
func (v Vector3) Array() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
