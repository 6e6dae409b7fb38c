package preference

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/internal/service/preference"
	apperrors "github.com/regionsvc/region-api/pkg/errors"
	"github.com/regionsvc/region-api/pkg/httputil"
)

type Handler struct {
	service    *preference.Service
	reconciler *preference.Reconciler
}

func NewHandler(service *preference.Service, reconciler *preference.Reconciler) *Handler {
	return &Handler{service: service, reconciler: reconciler}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prefs := r.Group("/preferences")
	{
		prefs.POST("/init", h.Initialize)
		prefs.GET("", h.Get)
		prefs.DELETE("", h.Clear)
		prefs.PUT("/region", h.UpdateRegion)
		prefs.POST("/privacy", h.SignPrivacy)
		prefs.GET("/privacy/:region", h.PrivacyStatus)
		prefs.GET("/mismatch", h.CheckMismatch)
		prefs.POST("/mismatch/ack", h.AcknowledgeMismatch)
		prefs.GET("/export", h.Export)
		prefs.POST("/import", h.Import)
	}
}

type initializeRequest struct {
	Region string `json:"region" binding:"omitempty,regioncode"`
}

// Initialize creates the preference record, seeding it from the
// request region when given or from a fresh detection otherwise.
// Calling it again returns the existing record untouched.
func (h *Handler) Initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid region", err))
		return
	}

	var detected *model.RegionCode
	if req.Region != "" {
		code := model.RegionCode(req.Region)
		detected = &code
	}

	prefs := h.service.Initialize(c.Request.Context(), detected)
	httputil.RespondWithSuccess(c, prefs)
}

func (h *Handler) Get(c *gin.Context) {
	prefs := h.service.Get(c.Request.Context())
	if prefs == nil {
		httputil.RespondWithError(c, apperrors.NotFound("region preferences", nil))
		return
	}
	httputil.RespondWithSuccess(c, prefs)
}

func (h *Handler) Clear(c *gin.Context) {
	h.service.Clear(c.Request.Context())
	httputil.RespondWithSuccess(c, gin.H{"cleared": true})
}

type updateRegionRequest struct {
	Region string `json:"region" binding:"required,userregion"`
}

func (h *Handler) UpdateRegion(c *gin.Context) {
	var req updateRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid region", err))
		return
	}

	prefs, err := h.service.UpdateCurrentRegion(c.Request.Context(), model.UserRegion(req.Region))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prefs)
}

type signPrivacyRequest struct {
	Region string `json:"region" binding:"required,userregion"`
}

func (h *Handler) SignPrivacy(c *gin.Context) {
	var req signPrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid region", err))
		return
	}

	prefs, err := h.service.MarkPrivacySigned(c.Request.Context(), model.UserRegion(req.Region))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prefs)
}

func (h *Handler) PrivacyStatus(c *gin.Context) {
	region := model.UserRegion(c.Param("region"))
	if !region.Valid() {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid region", nil))
		return
	}

	signed := h.service.HasSignedPrivacyFor(c.Request.Context(), region)
	httputil.RespondWithSuccess(c, gin.H{"region": region, "signed": signed})
}

func (h *Handler) CheckMismatch(c *gin.Context) {
	result := h.reconciler.CheckLocationMismatch(c.Request.Context())
	httputil.RespondWithSuccess(c, result)
}

// AcknowledgeMismatch stamps the alert cooldown after the client has
// shown the mismatch alert.
func (h *Handler) AcknowledgeMismatch(c *gin.Context) {
	h.reconciler.AcknowledgeAlert(c.Request.Context())
	httputil.RespondWithSuccess(c, gin.H{"acknowledged": true})
}

func (h *Handler) Export(c *gin.Context) {
	data, err := h.service.Export(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(data))
}

// Import restores a record previously produced by Export. The body is
// the raw record, not a wrapper envelope.
func (h *Handler) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("unreadable body", err))
		return
	}

	if err := h.service.Import(c.Request.Context(), string(body)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"imported": true})
}
