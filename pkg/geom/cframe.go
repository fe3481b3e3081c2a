package geom

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

var ErrComponents = errors.New("cframe needs 3 or 12 components")

// CFrame is a coordinate frame: a position plus a row-major 3x3 rotation.
type CFrame struct {
	Position Vector3
	Rotation [9]float64
}

var identityRotation = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

func Identity() CFrame { return CFrame{Rotation: identityRotation} }

// NewCFrame is a translation with no rotation.
func NewCFrame(x, y, z float64) CFrame {
	return CFrame{Position: Vector3{x, y, z}, Rotation: identityRotation}
}

// FromComponents accepts x, y, z or x, y, z, R00, R01, R02, R10, R11, R12,
// R20, R21, R22.
func FromComponents(c ...float64) (CFrame, error) {
	switch len(c) {
	case 3:
		return NewCFrame(c[0], c[1], c[2]), nil
	case 12:
		cf := CFrame{Position: Vector3{c[0], c[1], c[2]}}
		copy(cf.Rotation[:], c[3:])
		return cf, nil
	default:
		return CFrame{}, fmt.Errorf("%w: got %d", ErrComponents, len(c))
	}
}

// Components is the inverse of FromComponents with 12 values.
func (c CFrame) Components() [12]float64 {
	var out [12]float64
	out[0], out[1], out[2] = c.Position.X, c.Position.Y, c.Position.Z
	copy(out[3:], c.Rotation[:])
	return out
}

// Angles builds a rotation from radians, applied Z first, then Y, then X.
func Angles(rx, ry, rz float64) CFrame {
	sx, cx := math.Sincos(rx)
	sy, cy := math.Sincos(ry)
	sz, cz := math.Sincos(rz)
	x := [9]float64{1, 0, 0, 0, cx, -sx, 0, sx, cx}
	y := [9]float64{cy, 0, sy, 0, 1, 0, -sy, 0, cy}
	z := [9]float64{cz, -sz, 0, sz, cz, 0, 0, 0, 1}
	return CFrame{Rotation: mulMat(mulMat(x, y), z)}
}

func mulMat(a, b [9]float64) [9]float64 {
	var out [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = a[r*3]*b[c] + a[r*3+1]*b[3+c] + a[r*3+2]*b[6+c]
		}
	}
	return out
}

func (c CFrame) rotate(v Vector3) Vector3 {
	r := c.Rotation
	return Vector3{
		r[0]*v.X + r[1]*v.Y + r[2]*v.Z,
		r[3]*v.X + r[4]*v.Y + r[5]*v.Z,
		r[6]*v.X + r[7]*v.Y + r[8]*v.Z,
	}
}

// Mul composes c with o, o applied first.
func (c CFrame) Mul(o CFrame) CFrame {
	return CFrame{
		Position: c.rotate(o.Position).Add(c.Position),
		Rotation: mulMat(c.Rotation, o.Rotation),
	}
}

// Inverse assumes an orthonormal rotation.
func (c CFrame) Inverse() CFrame {
	r := c.Rotation
	t := CFrame{Rotation: [9]float64{r[0], r[3], r[6], r[1], r[4], r[7], r[2], r[5], r[8]}}
	t.Position = t.rotate(c.Position).Scale(-1)
	return t
}

func (c CFrame) PointToWorldSpace(v Vector3) Vector3 { return c.rotate(v).Add(c.Position) }

func (c CFrame) RightVector() Vector3 {
	return Vector3{c.Rotation[0], c.Rotation[3], c.Rotation[6]}
}

func (c CFrame) UpVector() Vector3 {
	return Vector3{c.Rotation[1], c.Rotation[4], c.Rotation[7]}
}

func (c CFrame) LookVector() Vector3 {
	return Vector3{-c.Rotation[2], -c.Rotation[5], -c.Rotation[8]}
}

func (c CFrame) MarshalJSON() ([]byte, error) {
	comps := c.Components()
	return json.Marshal(comps[:])
}

func (c *CFrame) UnmarshalJSON(b []byte) error {
	var comps []float64
	if err := json.Unmarshal(b, &comps); err != nil {
		return err
	}
	cf, err := FromComponents(comps...)
	if err != nil {
		return err
	}
	*c = cf
	return nil
}

func (c CFrame) MarshalYAML() (any, error) {
	comps := c.Components()
	return comps[:], nil
}

func (c *CFrame) UnmarshalYAML(n *yaml.Node) error {
	var comps []float64
	if err := n.Decode(&comps); err != nil {
		return err
	}
	cf, err := FromComponents(comps...)
	if err != nil {
		return err
	}
	*c = cf
	return nil
}
