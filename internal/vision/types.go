package vision

// Region is a rectangle in unit-normalized image coordinates: all fields
// are in [0, 1] relative to the frame size, origin at the top-left.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Expand grows the region by a 10%-of-frame margin on each side, clamped
// to the frame bounds. Used as the region of interest when re-detecting a
// face around a tracker's last known position.
func (r Region) Expand() Region {
	x := max(r.X-0.1, 0)
	y := max(r.Y-0.1, 0)
	return Region{
		X:      x,
		Y:      y,
		Width:  min(r.Width+0.2, 1-x),
		Height: min(r.Height+0.2, 1-y),
	}
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Face is a single detected face region with detector confidence.
type Face struct {
	Region     Region  `json:"region"`
	Confidence float64 `json:"confidence"`
}

// Label is one classifier outcome.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Attribute identifies one of the face attribute classifiers.
type Attribute string

const (
	AttrAge     Attribute = "age"
	AttrGender  Attribute = "gender"
	AttrRace    Attribute = "race"
	AttrEmotion Attribute = "emotion"
)

// Attributes returns all attribute kinds in a stable order.
func Attributes() []Attribute {
	return []Attribute{AttrAge, AttrGender, AttrRace, AttrEmotion}
}
