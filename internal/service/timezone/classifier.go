package timezone

import (
	"strings"

	"github.com/regionsvc/region-api/internal/model"
)

type zoneEntry struct {
	region     model.RegionCode
	confidence model.Confidence
	country    string
}

// Exact-match table for well-known zones. China mainland plus Hong
// Kong, Macao and Taiwan map to zh at high confidence; major US zones
// map to en at high confidence. A few Asian neighbors map to zh at
// medium confidence as a deliberately loose heuristic.
var zoneTable = map[string]zoneEntry{
	"Asia/Shanghai":  {model.RegionZH, model.ConfidenceHigh, "China"},
	"Asia/Beijing":   {model.RegionZH, model.ConfidenceHigh, "China"},
	"Asia/Chongqing": {model.RegionZH, model.ConfidenceHigh, "China"},
	"Asia/Harbin":    {model.RegionZH, model.ConfidenceHigh, "China"},
	"Asia/Urumqi":    {model.RegionZH, model.ConfidenceHigh, "China"},
	"Asia/Hong_Kong": {model.RegionZH, model.ConfidenceHigh, "Hong Kong"},
	"Asia/Macao":     {model.RegionZH, model.ConfidenceHigh, "Macao"},
	"Asia/Taipei":    {model.RegionZH, model.ConfidenceHigh, "Taiwan"},

	"America/New_York":    {model.RegionEN, model.ConfidenceHigh, "United States"},
	"America/Los_Angeles": {model.RegionEN, model.ConfidenceHigh, "United States"},
	"America/Chicago":     {model.RegionEN, model.ConfidenceHigh, "United States"},
	"America/Denver":      {model.RegionEN, model.ConfidenceHigh, "United States"},
	"America/Phoenix":     {model.RegionEN, model.ConfidenceHigh, "United States"},
	"America/Anchorage":   {model.RegionEN, model.ConfidenceHigh, "United States"},
	"Pacific/Honolulu":    {model.RegionEN, model.ConfidenceHigh, "United States"},

	"Asia/Tokyo":     {model.RegionZH, model.ConfidenceMedium, "Japan"},
	"Asia/Seoul":     {model.RegionZH, model.ConfidenceMedium, "South Korea"},
	"Asia/Singapore": {model.RegionZH, model.ConfidenceMedium, "Singapore"},
}

// Classifier maps an IANA timezone identifier to a region guess. It is
// pure and synchronous; no failure surfaces to the caller.
type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

// Classify resolves zone against the exact-match table, falling back
// to prefix patterns. Unrecognized or empty zones degrade to zh at low
// confidence.
func (c *Classifier) Classify(zone string) model.RegionDetectionResult {
	if zone == "" {
		return model.RegionDetectionResult{
			Region:     model.RegionZH,
			Confidence: model.ConfidenceLow,
			Method:     model.MethodTimezone,
			Location:   &model.Location{Country: "China"},
		}
	}

	if entry, ok := zoneTable[zone]; ok {
		return model.RegionDetectionResult{
			Region:     entry.region,
			Confidence: entry.confidence,
			Method:     model.MethodTimezone,
			Location: &model.Location{
				Country: entry.country,
				City:    zoneCity(zone),
			},
		}
	}

	var (
		region     model.RegionCode
		confidence model.Confidence
		country    string
	)
	switch {
	case strings.HasPrefix(zone, "Asia/"):
		region, confidence, country = model.RegionZH, model.ConfidenceMedium, "Asia (Unknown)"
	case strings.HasPrefix(zone, "America/"),
		strings.HasPrefix(zone, "US/"),
		strings.HasPrefix(zone, "Pacific/"):
		region, confidence, country = model.RegionEN, model.ConfidenceMedium, "Americas (Unknown)"
	default:
		region, confidence, country = model.RegionZH, model.ConfidenceLow, "Unknown"
	}

	return model.RegionDetectionResult{
		Region:     region,
		Confidence: confidence,
		Method:     model.MethodTimezone,
		Location: &model.Location{
			Country: country,
			City:    zoneCity(zone),
		},
	}
}

func zoneCity(zone string) string {
	if i := strings.LastIndex(zone, "/"); i >= 0 && i < len(zone)-1 {
		return strings.ReplaceAll(zone[i+1:], "_", " ")
	}
	return ""
}
