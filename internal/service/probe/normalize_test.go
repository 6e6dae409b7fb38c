package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCountryIs(t *testing.T) {
	loc, err := normalizeCountryIs([]byte(`{"ip":"1.2.3.4","country":"CN"}`))
	require.NoError(t, err)
	assert.Equal(t, "CN", loc.CountryCode)

	_, err = normalizeCountryIs([]byte(`{"ip":"1.2.3.4"}`))
	assert.Error(t, err)
}

func TestNormalizeGeoJS(t *testing.T) {
	loc, err := normalizeGeoJS([]byte(`{"name":"United States","country":"US","ip":"8.8.8.8"}`))
	require.NoError(t, err)
	assert.Equal(t, "US", loc.CountryCode)
	assert.Equal(t, "United States", loc.CountryName)
}

func TestNormalizeGenericAliases(t *testing.T) {
	loc, err := normalizeGeneric([]byte(`{"code":"CN","name":"China","city":"Beijing","lat":39.9,"lng":116.4}`))
	require.NoError(t, err)
	assert.Equal(t, "CN", loc.CountryCode)
	assert.Equal(t, "China", loc.CountryName)
	assert.Equal(t, "Beijing", loc.City)
	assert.InDelta(t, 39.9, loc.Latitude, 0.001)
	assert.InDelta(t, 116.4, loc.Longitude, 0.001)

	loc, err = normalizeGeneric([]byte(`{"country_code":"US","country_name":"United States","latitude":40.7,"longitude":-74.0}`))
	require.NoError(t, err)
	assert.Equal(t, "US", loc.CountryCode)
	assert.InDelta(t, -74.0, loc.Longitude, 0.001)

	_, err = normalizeGeneric([]byte(`{"city":"Nowhere"}`))
	assert.Error(t, err)
}
