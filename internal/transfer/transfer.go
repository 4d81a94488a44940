// Package transfer converts sparse intensity-to-color/opacity control points
// into the dense 256-entry lookup table the render pipeline samples.
package transfer

import "sort"

// TableSize is the fixed lookup-table resolution. Entry i corresponds to
// normalized intensity i/(TableSize-1).
const TableSize = 256

// Point is one transfer-function control point. Color and Opacity are
// independent channels: a nil field means this point does not constrain that
// channel.
type Point struct {
	Value   float64
	Color   *[3]float64
	Opacity *float64
}

// ColorPoint builds a color-only control point.
func ColorPoint(value, r, g, b float64) Point {
	return Point{Value: value, Color: &[3]float64{r, g, b}}
}

// OpacityPoint builds an opacity-only control point.
func OpacityPoint(value, opacity float64) Point {
	return Point{Value: value, Opacity: &opacity}
}

// RGBA builds a control point constraining both channels.
func RGBA(value, r, g, b, opacity float64) Point {
	return Point{Value: value, Color: &[3]float64{r, g, b}, Opacity: &opacity}
}

// Func is an ordered set of control points.
type Func struct {
	Points []Point
}

// Table is the dense sampled form: RGBA per entry, opacity in [3].
type Table [TableSize][4]float32

// controlKnot is one channel's (value, samples) pair after splitting.
type controlKnot struct {
	value float64
	data  [3]float64
	n     int // channel width: 3 for color, 1 for opacity
}

// Build samples the function into a fixed table. Any number of control
// points is valid: zero points fill a channel with its default (black /
// fully transparent), one point fills it with that constant, two or more
// interpolate piecewise-linearly with endpoint clamping.
func (f Func) Build() Table {
	var colors, alphas []controlKnot
	for _, p := range f.Points {
		v := clamp01(p.Value)
		if p.Color != nil {
			colors = append(colors, controlKnot{value: v, data: *p.Color, n: 3})
		}
		if p.Opacity != nil {
			alphas = append(alphas, controlKnot{value: v, data: [3]float64{*p.Opacity}, n: 1})
		}
	}
	sortKnots(colors)
	sortKnots(alphas)

	var table Table
	for i := range table {
		t := float64(i) / float64(TableSize-1)
		c := sampleKnots(colors, t, [3]float64{0, 0, 0})
		a := sampleKnots(alphas, t, [3]float64{0})
		table[i] = [4]float32{
			float32(clamp01(c[0])),
			float32(clamp01(c[1])),
			float32(clamp01(c[2])),
			float32(clamp01(a[0])),
		}
	}
	return table
}

func sortKnots(knots []controlKnot) {
	sort.SliceStable(knots, func(i, j int) bool { return knots[i].value < knots[j].value })
}

// sampleKnots evaluates one channel at t. Values outside the knot range
// clamp to the nearest endpoint; there is no extrapolation.
func sampleKnots(knots []controlKnot, t float64, def [3]float64) [3]float64 {
	switch len(knots) {
	case 0:
		return def
	case 1:
		return knots[0].data
	}

	if t <= knots[0].value {
		return knots[0].data
	}
	last := knots[len(knots)-1]
	if t >= last.value {
		return last.data
	}

	// Find the bracketing pair.
	hi := sort.Search(len(knots), func(i int) bool { return knots[i].value >= t })
	lo := hi - 1
	a, b := knots[lo], knots[hi]

	span := b.value - a.value
	if span <= 0 {
		return b.data
	}
	w := (t - a.value) / span

	var out [3]float64
	for k := 0; k < a.n; k++ {
		out[k] = a.data[k]*(1-w) + b.data[k]*w
	}
	return out
}

// Sample interpolates the table at normalized intensity t, matching the
// linear filtering a texture unit applies.
func (tb *Table) Sample(t float64) [4]float64 {
	t = clamp01(t)
	f := t * float64(TableSize-1)
	i := int(f)
	if i >= TableSize-1 {
		e := tb[TableSize-1]
		return [4]float64{float64(e[0]), float64(e[1]), float64(e[2]), float64(e[3])}
	}
	w := f - float64(i)
	a, b := tb[i], tb[i+1]
	var out [4]float64
	for k := 0; k < 4; k++ {
		out[k] = float64(a[k])*(1-w) + float64(b[k])*w
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
