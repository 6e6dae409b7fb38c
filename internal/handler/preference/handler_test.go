package preference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/internal/repository/memory"
	"github.com/regionsvc/region-api/internal/service/preference"
	"github.com/regionsvc/region-api/pkg/metrics"
	"github.com/regionsvc/region-api/pkg/validator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validator.Register(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fixedDetector struct {
	region model.RegionCode
}

func (d fixedDetector) DetectRegion(ctx context.Context) model.RegionDetectionResult {
	return model.RegionDetectionResult{
		Region:     d.region,
		Confidence: model.ConfidenceHigh,
		Method:     model.MethodIP,
	}
}

func setupRouter(detected model.RegionCode) *gin.Engine {
	svc := preference.NewService(memory.NewStore(), fixedDetector{region: detected}, metrics.New("test"), zerolog.Nop())
	rec := preference.NewReconciler(svc, fixedDetector{region: detected}, 24*time.Hour, metrics.New("test"), zerolog.Nop())

	r := gin.New()
	NewHandler(svc, rec).RegisterRoutes(r.Group("/api/v1"))
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

func TestInitializeAndGet(t *testing.T) {
	r := setupRouter(model.RegionEN)

	w := doRequest(r, http.MethodGet, "/api/v1/preferences", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/preferences/init", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_region":"usa"`)

	w = doRequest(r, http.MethodGet, "/api/v1/preferences", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInitializeWithExplicitRegion(t *testing.T) {
	r := setupRouter(model.RegionEN)

	w := doRequest(r, http.MethodPost, "/api/v1/preferences/init", `{"region":"zh"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_region":"china"`)
}

func TestInitializeRejectsUnknownRegion(t *testing.T) {
	r := setupRouter(model.RegionEN)

	w := doRequest(r, http.MethodPost, "/api/v1/preferences/init", `{"region":"fr"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRegionRequiresInit(t *testing.T) {
	r := setupRouter(model.RegionZH)

	w := doRequest(r, http.MethodPut, "/api/v1/preferences/region", `{"region":"usa"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateRegion(t *testing.T) {
	r := setupRouter(model.RegionZH)
	doRequest(r, http.MethodPost, "/api/v1/preferences/init", "")

	w := doRequest(r, http.MethodPut, "/api/v1/preferences/region", `{"region":"usa"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_region":"usa"`)
	assert.Contains(t, w.Body.String(), `"is_manually_set":true`)

	w = doRequest(r, http.MethodPut, "/api/v1/preferences/region", `{"region":"mars"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrivacySignoff(t *testing.T) {
	r := setupRouter(model.RegionZH)
	doRequest(r, http.MethodPost, "/api/v1/preferences/init", "")

	w := doRequest(r, http.MethodGet, "/api/v1/preferences/privacy/china", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"signed":false`)

	w = doRequest(r, http.MethodPost, "/api/v1/preferences/privacy", `{"region":"china"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/preferences/privacy/china", "")
	assert.Contains(t, w.Body.String(), `"signed":true`)

	w = doRequest(r, http.MethodGet, "/api/v1/preferences/privacy/mars", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMismatchEndpoints(t *testing.T) {
	// Detection says USA while the record is initialized to China.
	r := setupRouter(model.RegionEN)
	doRequest(r, http.MethodPost, "/api/v1/preferences/init", `{"region":"zh"}`)

	w := doRequest(r, http.MethodGet, "/api/v1/preferences/mismatch", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_mismatch":true`)
	assert.Contains(t, w.Body.String(), `"should_alert":true`)

	w = doRequest(r, http.MethodPost, "/api/v1/preferences/mismatch/ack", "")
	require.Equal(t, http.StatusOK, w.Code)

	// The cooldown mutes further alerts while the mismatch persists.
	w = doRequest(r, http.MethodGet, "/api/v1/preferences/mismatch", "")
	assert.Contains(t, w.Body.String(), `"has_mismatch":true`)
	assert.Contains(t, w.Body.String(), `"should_alert":false`)
}

func TestExportImport(t *testing.T) {
	r := setupRouter(model.RegionEN)
	doRequest(r, http.MethodPost, "/api/v1/preferences/init", "")

	w := doRequest(r, http.MethodGet, "/api/v1/preferences/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.String()

	fresh := setupRouter(model.RegionZH)
	w = doRequest(fresh, http.MethodPost, "/api/v1/preferences/import", exported)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(fresh, http.MethodGet, "/api/v1/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_region":"usa"`)
}

func TestClearEndpoint(t *testing.T) {
	r := setupRouter(model.RegionZH)
	doRequest(r, http.MethodPost, "/api/v1/preferences/init", "")

	w := doRequest(r, http.MethodDelete, "/api/v1/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/preferences", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
