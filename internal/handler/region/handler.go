package region

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regionsvc/region-api/internal/model"
	apperrors "github.com/regionsvc/region-api/pkg/errors"
	"github.com/regionsvc/region-api/pkg/httputil"
)

// DetectionServicer is the detection waterfall consumed by this
// handler.
type DetectionServicer interface {
	DetectRegion(ctx context.Context) model.RegionDetectionResult
	QuickDetect(ctx context.Context) model.RegionCode
	PreDetect(ctx context.Context)
	ClearCache(ctx context.Context)
	CachedResult() *model.RegionDetectionResult
}

// Geolocator classifies explicit coordinates without touching the
// network.
type Geolocator interface {
	DetectAt(lat, lon float64) *model.RegionDetectionResult
}

type Handler struct {
	service DetectionServicer
	geo     Geolocator
}

func NewHandler(service DetectionServicer, geo Geolocator) *Handler {
	return &Handler{service: service, geo: geo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	region := r.Group("/region")
	{
		region.GET("/detect", h.Detect)
		region.GET("/quick", h.QuickDetect)
		region.POST("/predetect", h.PreDetect)
		region.GET("/cached", h.Cached)
		region.DELETE("/cache", h.ClearCache)
		region.POST("/geolocate", h.Geolocate)
		region.GET("/info/:region", h.Info)
	}
}

// Detect runs the full waterfall. It always succeeds; degraded results
// carry low confidence and an error string instead of a failure status.
func (h *Handler) Detect(c *gin.Context) {
	result := h.service.DetectRegion(c.Request.Context())
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) QuickDetect(c *gin.Context) {
	region := h.service.QuickDetect(c.Request.Context())
	httputil.RespondWithSuccess(c, gin.H{"region": region})
}

// PreDetect warms the cache in the background and returns immediately.
func (h *Handler) PreDetect(c *gin.Context) {
	go h.service.PreDetect(context.WithoutCancel(c.Request.Context()))
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func (h *Handler) Cached(c *gin.Context) {
	result := h.service.CachedResult()
	if result == nil {
		httputil.RespondWithError(c, apperrors.NotFound("cached detection", nil))
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) ClearCache(c *gin.Context) {
	h.service.ClearCache(c.Request.Context())
	httputil.RespondWithSuccess(c, gin.H{"cleared": true})
}

type geolocateRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

// Geolocate classifies caller-supplied coordinates against the China
// geofence. Coordinates are bound as pointers so zero values pass the
// required check.
func (h *Handler) Geolocate(c *gin.Context) {
	var req geolocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid coordinates", err))
		return
	}

	result := h.geo.DetectAt(*req.Latitude, *req.Longitude)
	httputil.RespondWithSuccess(c, result)
}

// Info returns the localized display name and flag icon for a region.
// The lang query selects the label language and defaults to English.
func (h *Handler) Info(c *gin.Context) {
	region := model.UserRegion(c.Param("region"))
	if !region.Valid() {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid region", nil))
		return
	}
	lang := model.RegionCode(c.DefaultQuery("lang", string(model.RegionEN)))

	httputil.RespondWithSuccess(c, gin.H{
		"region":       region,
		"display_name": model.RegionDisplayName(region, lang),
		"icon":         model.RegionIcon(region),
	})
}
