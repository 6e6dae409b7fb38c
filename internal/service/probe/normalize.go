package probe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GeoLocation is the canonical shape every provider response is
// normalized into before classification.
type GeoLocation struct {
	CountryCode string
	CountryName string
	City        string
	Latitude    float64
	Longitude   float64
}

// Normalizer maps one provider's response body into the canonical shape.
type Normalizer func(body []byte) (GeoLocation, error)

// NormalizerFor selects a normalizer by provider format name.
// Unknown formats fall back to the generic field-alias normalizer.
func NormalizerFor(format string) Normalizer {
	switch strings.ToLower(format) {
	case "countryis":
		return normalizeCountryIs
	case "geojs":
		return normalizeGeoJS
	case "ipapi":
		return normalizeIPAPI
	default:
		return normalizeGeneric
	}
}

// api.country.is: {"ip":"1.2.3.4","country":"CN"}
func normalizeCountryIs(body []byte) (GeoLocation, error) {
	var m struct {
		IP      string `json:"ip"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return GeoLocation{}, fmt.Errorf("failed to decode country.is response: %w", err)
	}
	if m.Country == "" {
		return GeoLocation{}, fmt.Errorf("country.is response missing country")
	}
	return GeoLocation{CountryCode: m.Country, CountryName: m.Country}, nil
}

// geojs.io: {"name":"China","country":"CN","country_3":"CHN","ip":"..."}
func normalizeGeoJS(body []byte) (GeoLocation, error) {
	var m struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return GeoLocation{}, fmt.Errorf("failed to decode geojs response: %w", err)
	}
	code := m.Country
	if code == "" {
		code = m.Code
	}
	if code == "" {
		return GeoLocation{}, fmt.Errorf("geojs response missing country code")
	}
	return GeoLocation{CountryCode: code, CountryName: m.Name}, nil
}

// ipapi.co/json: full record with country_code, country_name, city,
// latitude and longitude.
func normalizeIPAPI(body []byte) (GeoLocation, error) {
	var m struct {
		CountryCode string  `json:"country_code"`
		CountryName string  `json:"country_name"`
		City        string  `json:"city"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return GeoLocation{}, fmt.Errorf("failed to decode ipapi response: %w", err)
	}
	if m.CountryCode == "" {
		return GeoLocation{}, fmt.Errorf("ipapi response missing country_code")
	}
	return GeoLocation{
		CountryCode: m.CountryCode,
		CountryName: m.CountryName,
		City:        m.City,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
	}, nil
}

// normalizeGeneric tolerates the field-name spread seen across free
// geolocation APIs: country_code/code/country, country_name/name,
// lat/latitude, lon/lng/longitude.
func normalizeGeneric(body []byte) (GeoLocation, error) {
	var m struct {
		CountryCode string   `json:"country_code"`
		Code        string   `json:"code"`
		Country     string   `json:"country"`
		CountryName string   `json:"country_name"`
		Name        string   `json:"name"`
		City        string   `json:"city"`
		Latitude    *float64 `json:"latitude"`
		Lat         *float64 `json:"lat"`
		Longitude   *float64 `json:"longitude"`
		Lon         *float64 `json:"lon"`
		Lng         *float64 `json:"lng"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return GeoLocation{}, fmt.Errorf("failed to decode provider response: %w", err)
	}

	code := firstNonEmpty(m.CountryCode, m.Code, m.Country)
	if code == "" {
		return GeoLocation{}, fmt.Errorf("provider response missing country code")
	}

	loc := GeoLocation{
		CountryCode: code,
		CountryName: firstNonEmpty(m.CountryName, m.Name, m.Country),
		City:        m.City,
	}
	if lat := firstFloat(m.Latitude, m.Lat); lat != nil {
		loc.Latitude = *lat
	}
	if lon := firstFloat(m.Longitude, m.Lon, m.Lng); lon != nil {
		loc.Longitude = *lon
	}
	return loc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
