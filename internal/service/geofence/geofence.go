package geofence

import (
	"math"

	"github.com/rs/zerolog"
)

// Rect is an axis-aligned bounding rectangle in degrees.
type Rect struct {
	Name  string
	North float64
	South float64
	East  float64
	West  float64
}

func (r Rect) Contains(lat, lon float64) bool {
	return lat >= r.South && lat <= r.North && lon >= r.West && lon <= r.East
}

// chinaBounds is the coarse envelope for China including Hong Kong,
// Macao and Taiwan.
var chinaBounds = Rect{
	Name:  "China",
	North: 55.8271,
	South: 3.8520,
	East:  135.0857,
	West:  73.4994,
}

// specialRegions are evaluated before the overseas exclusions and win
// over them. This ordering is load-bearing.
var specialRegions = []Rect{
	{Name: "HongKong", North: 22.6, South: 22.1, East: 114.5, West: 113.8},
	{Name: "Macau", North: 22.25, South: 22.1, East: 113.65, West: 113.5},
	{Name: "Taiwan", North: 25.3, South: 21.9, East: 122.0, West: 119.3},
}

// overseasExclusions are coarse rectangles for neighboring territories
// that fall inside the China envelope. The western border overlap with
// the India and Siberia boxes is a known limitation of this
// approximation.
var overseasExclusions = []Rect{
	{Name: "Japan", North: 46, South: 30, East: 146, West: 129},
	{Name: "Korea", North: 39, South: 33, East: 130, West: 124},
	{Name: "Siberia", North: 72, South: 50, East: 180, West: 60},
	{Name: "NorthIndia", North: 35, South: 25, East: 85, West: 72},
}

// Classifier answers the coarse "is this point in China" question.
type Classifier struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// InChina classifies a coordinate pair. Invalid input returns false
// with a logged warning rather than an error.
func (c *Classifier) InChina(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		c.logger.Warn().
			Float64("latitude", lat).
			Float64("longitude", lon).
			Msg("invalid coordinates for geofence check")
		return false
	}

	if !chinaBounds.Contains(lat, lon) {
		return false
	}

	for _, r := range specialRegions {
		if r.Contains(lat, lon) {
			return true
		}
	}

	for _, r := range overseasExclusions {
		if r.Contains(lat, lon) {
			return false
		}
	}

	return true
}
