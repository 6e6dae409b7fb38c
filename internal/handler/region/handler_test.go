package region

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regionsvc/region-api/internal/model"
)

type stubService struct {
	result model.RegionDetectionResult
	cached *model.RegionDetectionResult
}

func (s *stubService) DetectRegion(ctx context.Context) model.RegionDetectionResult {
	return s.result
}

func (s *stubService) QuickDetect(ctx context.Context) model.RegionCode {
	return s.result.Region
}

func (s *stubService) PreDetect(ctx context.Context) {}

func (s *stubService) ClearCache(ctx context.Context) { s.cached = nil }

func (s *stubService) CachedResult() *model.RegionDetectionResult { return s.cached }

type stubGeo struct{}

func (stubGeo) DetectAt(lat, lon float64) *model.RegionDetectionResult {
	region := model.RegionEN
	if lat > 20 && lat < 50 && lon > 80 && lon < 125 {
		region = model.RegionZH
	}
	return &model.RegionDetectionResult{
		Region:     region,
		Confidence: model.ConfidenceHigh,
		Method:     model.MethodGPS,
	}
}

func setupRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc, stubGeo{}).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDetectEndpoint(t *testing.T) {
	svc := &stubService{result: model.RegionDetectionResult{
		Region:     model.RegionZH,
		Confidence: model.ConfidenceHigh,
		Method:     model.MethodTimezone,
	}}
	r := setupRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/region/detect", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                        `json:"success"`
		Data    model.RegionDetectionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, model.RegionZH, resp.Data.Region)
	assert.Equal(t, model.MethodTimezone, resp.Data.Method)
}

func TestQuickEndpoint(t *testing.T) {
	svc := &stubService{result: model.RegionDetectionResult{Region: model.RegionEN}}
	r := setupRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/region/quick", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"region":"en"`)
}

func TestPreDetectEndpoint(t *testing.T) {
	r := setupRouter(&stubService{})

	w := doRequest(r, http.MethodPost, "/api/v1/region/predetect", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestCachedEndpoint(t *testing.T) {
	svc := &stubService{}
	r := setupRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/region/cached", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.cached = &model.RegionDetectionResult{Region: model.RegionZH, Confidence: model.ConfidenceHigh, Method: model.MethodCache}
	w = doRequest(r, http.MethodGet, "/api/v1/region/cached", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClearCacheEndpoint(t *testing.T) {
	svc := &stubService{cached: &model.RegionDetectionResult{Region: model.RegionZH}}
	r := setupRouter(svc)

	w := doRequest(r, http.MethodDelete, "/api/v1/region/cache", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.cached)
}

func TestGeolocateEndpoint(t *testing.T) {
	r := setupRouter(&stubService{})

	w := doRequest(r, http.MethodPost, "/api/v1/region/geolocate", `{"latitude":39.9,"longitude":116.4}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"region":"zh"`)

	w = doRequest(r, http.MethodPost, "/api/v1/region/geolocate", `{"latitude":40.71,"longitude":-74.01}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"region":"en"`)
}

func TestInfoEndpoint(t *testing.T) {
	r := setupRouter(&stubService{})

	w := doRequest(r, http.MethodGet, "/api/v1/region/info/china?lang=zh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "中国")

	w = doRequest(r, http.MethodGet, "/api/v1/region/info/usa", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "United States")

	w = doRequest(r, http.MethodGet, "/api/v1/region/info/mars", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeolocateRejectsBadInput(t *testing.T) {
	r := setupRouter(&stubService{})

	// Missing longitude.
	w := doRequest(r, http.MethodPost, "/api/v1/region/geolocate", `{"latitude":39.9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Latitude out of range.
	w = doRequest(r, http.MethodPost, "/api/v1/region/geolocate", `{"latitude":120,"longitude":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
