package catalog

import "math"

type Star int

const (
	StarEmpty Star = iota
	StarHalf
	StarFull
)

func (s Star) String() string {
	switch s {
	case StarFull:
		return "full"
	case StarHalf:
		return "half"
	}
	return "empty"
}

const MaxStars = 5

// Stars renders rating as five positions. The rating is clamped to [0,5]; a
// fractional part of at least one half shows a half star.
func Stars(rating float64) []Star {
	if math.IsNaN(rating) {
		rating = 0
	}
	rating = math.Max(0, math.Min(MaxStars, rating))

	full := int(math.Floor(rating))
	half := rating-float64(full) >= 0.5

	out := make([]Star, MaxStars)
	for i := range out {
		switch {
		case i < full:
			out[i] = StarFull
		case i == full && half:
			out[i] = StarHalf
		default:
			out[i] = StarEmpty
		}
	}
	return out
}
