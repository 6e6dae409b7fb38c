package model

// RegionCode is the two-valued detection domain: "zh" for China,
// "en" for the United States.
type RegionCode string

const (
	RegionZH RegionCode = "zh"
	RegionEN RegionCode = "en"
)

// UserRegion is the stored-preference domain, mapped 1:1 onto RegionCode.
type UserRegion string

const (
	RegionChina UserRegion = "china"
	RegionUSA   UserRegion = "usa"
)

// Confidence indicates how much a detection method should be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DetectionMethod records which waterfall tier produced a result.
type DetectionMethod string

const (
	MethodCache    DetectionMethod = "cache"
	MethodTimezone DetectionMethod = "timezone"
	MethodIP       DetectionMethod = "ip"
	MethodGPS      DetectionMethod = "gps"
	MethodDefault  DetectionMethod = "default"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Location struct {
	Country     string       `json:"country"`
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// RegionDetectionResult is produced per detection call and discarded;
// only its cached form persists, and even that expires.
type RegionDetectionResult struct {
	Region     RegionCode      `json:"region"`
	Confidence Confidence      `json:"confidence"`
	Method     DetectionMethod `json:"method"`
	Location   *Location       `json:"location,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Valid reports whether the result carries in-domain region and
// confidence values.
func (r *RegionDetectionResult) Valid() bool {
	if r == nil {
		return false
	}
	if r.Region != RegionZH && r.Region != RegionEN {
		return false
	}
	switch r.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// CachedDetection is the persisted form of a detection result.
// Consumers must treat entries older than the configured TTL as absent.
type CachedDetection struct {
	Result    RegionDetectionResult `json:"result"`
	Timestamp int64                 `json:"timestamp"`
}

// UserRegionPreferences is the persisted, versioned record of the
// user's chosen region. RegistrationRegion is frozen at first
// initialization and never mutated afterward.
type UserRegionPreferences struct {
	CurrentRegion        UserRegion   `json:"current_region"`
	RegistrationRegion   UserRegion   `json:"registration_region"`
	PrivacySignedRegions []UserRegion `json:"privacy_signed_regions"`
	LastUpdated          int64        `json:"last_updated"`
	IsManuallySet        bool         `json:"is_manually_set"`
	LastMismatchAlert    int64        `json:"last_mismatch_alert,omitempty"`
}

// Valid reports whether the record is structurally complete. A record
// failing this check is treated as entirely absent by callers.
func (p *UserRegionPreferences) Valid() bool {
	if p == nil {
		return false
	}
	if !p.CurrentRegion.Valid() || !p.RegistrationRegion.Valid() {
		return false
	}
	if p.PrivacySignedRegions == nil {
		return false
	}
	for _, r := range p.PrivacySignedRegions {
		if !r.Valid() {
			return false
		}
	}
	return p.LastUpdated > 0
}

// HasSigned reports whether region is in the privacy sign-off set.
func (p *UserRegionPreferences) HasSigned(region UserRegion) bool {
	if p == nil {
		return false
	}
	for _, r := range p.PrivacySignedRegions {
		if r == region {
			return true
		}
	}
	return false
}

// Valid reports whether the user region is in-domain.
func (u UserRegion) Valid() bool {
	return u == RegionChina || u == RegionUSA
}

// RegionCode maps the stored-preference domain to the detection domain.
func (u UserRegion) RegionCode() RegionCode {
	if u == RegionChina {
		return RegionZH
	}
	return RegionEN
}

// UserRegion maps the detection domain to the stored-preference
// domain. Anything that is not China is coerced into the USA bucket.
func (r RegionCode) UserRegion() UserRegion {
	if r == RegionZH {
		return RegionChina
	}
	return RegionUSA
}

var regionDisplayNames = map[UserRegion]map[RegionCode]string{
	RegionChina: {
		RegionZH: "中国",
		RegionEN: "China",
	},
	RegionUSA: {
		RegionZH: "美国",
		RegionEN: "United States",
	},
}

// RegionDisplayName returns the localized display name for a region.
func RegionDisplayName(region UserRegion, lang RegionCode) string {
	names, ok := regionDisplayNames[region]
	if !ok {
		return string(region)
	}
	if name, ok := names[lang]; ok {
		return name
	}
	return names[RegionZH]
}

// RegionIcon returns the flag emoji for a region.
func RegionIcon(region UserRegion) string {
	if region == RegionChina {
		return "🇨🇳"
	}
	return "🇺🇸"
}
