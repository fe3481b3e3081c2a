package geom

// NumOrientations is the count of axis-aligned proper rotations.
const NumOrientations = 24

// orientations holds every rotation whose rows are signed unit axes and
// whose determinant is +1. Index 0 is the identity.
var orientations = buildOrientations()

func buildOrientations() [NumOrientations][9]float64 {
	perms := [6][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	parity := [6]float64{1, -1, -1, 1, 1, -1}

	var out [NumOrientations][9]float64
	n := 0
	for p, perm := range perms {
		for mask := 0; mask < 8; mask++ {
			det := parity[p]
			var m [9]float64
			for row := 0; row < 3; row++ {
				s := 1.0
				if mask&(1<<row) != 0 {
					s = -1
				}
				det *= s
				m[row*3+perm[row]] = s
			}
			if det > 0 {
				out[n] = m
				n++
			}
		}
	}
	return out
}

// OrientationID reports the 1-based id of c's rotation when it is axis
// aligned.
func (c CFrame) OrientationID() (int, bool) {
	for i, m := range orientations {
		if m == c.Rotation {
			return i + 1, true
		}
	}
	return 0, false
}

// FromOrientationID builds a frame at pos from an id returned by
// OrientationID.
func FromOrientationID(id int, pos Vector3) (CFrame, bool) {
	if id < 1 || id > NumOrientations {
		return CFrame{}, false
	}
	return CFrame{Position: pos, Rotation: orientations[id-1]}, true
}
