package session

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/richxcame/navigator/internal/directions"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/common"
	"github.com/richxcame/navigator/pkg/geo"
	"github.com/richxcame/navigator/pkg/httpclient"
	"github.com/richxcame/navigator/pkg/middleware"
	"github.com/richxcame/navigator/pkg/resilience"
	"github.com/richxcame/navigator/pkg/validation"
	ws "github.com/richxcame/navigator/pkg/websocket"
)

const (
	defaultNearbyRadiusKm = 1.0
	maxNearbyRadiusKm     = 50.0
	defaultNearbyLimit    = 20
	maxNearbyLimit        = 200
)

// Handler exposes navigation sessions over HTTP and websocket.
type Handler struct {
	service  *Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new session handler. hub may be nil, which disables
// the websocket route.
func NewHandler(service *Service, hub *ws.Hub, allowedOrigins []string) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		upgrader: ws.NewUpgrader(allowedOrigins),
	}
}

// RegisterRoutes registers the session routes under rg. The websocket route
// is returned separately so callers can keep it out of request timeouts.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.Start)
		sessions.GET("/nearby", h.Nearby)

		one := sessions.Group("/:id", middleware.SessionID("id"))
		one.GET("", h.Get)
		one.DELETE("", h.Cancel)
		one.POST("/fixes", h.SubmitFix)
		one.POST("/advance", h.Advance)
		one.PUT("/voice", h.SetVoice)
		one.GET("/route", h.Route)
		one.GET("/route.kml", h.RouteKML)
	}
}

// RegisterSocketRoute registers GET /sessions/:id/ws under rg.
func (h *Handler) RegisterSocketRoute(rg *gin.RouterGroup) {
	if h.hub == nil {
		return
	}
	rg.GET("/sessions/:id/ws", middleware.SessionID("id"), h.Stream)
}

// Start handles POST /sessions
func (h *Handler) Start(c *gin.Context) {
	var req StartRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if !validate(c, req) {
		return
	}

	view, err := h.service.Start(c.Request.Context(), req)
	if common.HandleServiceError(c, toAppError(err), "failed to start navigation") {
		return
	}
	common.CreatedResponse(c, view)
}

// Get handles GET /sessions/:id
func (h *Handler) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if common.HandleServiceError(c, toAppError(err), "failed to get navigation session") {
		return
	}
	common.SuccessResponse(c, view)
}

// Cancel handles DELETE /sessions/:id
func (h *Handler) Cancel(c *gin.Context) {
	view, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if common.HandleServiceError(c, toAppError(err), "failed to cancel navigation") {
		return
	}
	common.SuccessResponse(c, view)
}

// SubmitFix handles POST /sessions/:id/fixes
func (h *Handler) SubmitFix(c *gin.Context) {
	var req FixRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if !validate(c, req) {
		return
	}

	result, err := h.service.SubmitFix(c.Request.Context(), c.Param("id"), req)
	if common.HandleServiceError(c, toAppError(err), "failed to apply fix") {
		return
	}
	common.SuccessResponse(c, result)
}

// Advance handles POST /sessions/:id/advance
func (h *Handler) Advance(c *gin.Context) {
	result, err := h.service.Advance(c.Request.Context(), c.Param("id"))
	if common.HandleServiceError(c, toAppError(err), "failed to advance step") {
		return
	}
	common.SuccessResponse(c, result)
}

type voiceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SetVoice handles PUT /sessions/:id/voice
func (h *Handler) SetVoice(c *gin.Context) {
	var req voiceRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if !validate(c, req) {
		return
	}

	view, err := h.service.SetVoice(c.Request.Context(), c.Param("id"), *req.Enabled)
	if common.HandleServiceError(c, toAppError(err), "failed to update voice guidance") {
		return
	}
	common.SuccessResponse(c, view)
}

// Route handles GET /sessions/:id/route
func (h *Handler) Route(c *gin.Context) {
	route, err := h.service.Route(c.Request.Context(), c.Param("id"))
	if common.HandleServiceError(c, toAppError(err), "failed to get route") {
		return
	}
	common.SuccessResponse(c, route)
}

// RouteKML handles GET /sessions/:id/route.kml
func (h *Handler) RouteKML(c *gin.Context) {
	id := c.Param("id")
	route, err := h.service.Route(c.Request.Context(), id)
	if common.HandleServiceError(c, toAppError(err), "failed to get route") {
		return
	}

	c.Header("Content-Type", "application/vnd.google-earth.kml+xml")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="route-%s.kml"`, id))
	c.Status(http.StatusOK)
	if err := directions.WriteKML(c.Writer, "Navigation "+id, route); err != nil {
		_ = c.Error(err)
	}
}

// Nearby handles GET /sessions/nearby?lat=&lng=&radius_km=&limit=
func (h *Handler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		common.ErrorResponse(c, http.StatusBadRequest, "lat and lng must be valid coordinates")
		return
	}

	radius := defaultNearbyRadiusKm
	if raw := c.Query("radius_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > maxNearbyRadiusKm {
			common.ErrorResponse(c, http.StatusBadRequest, fmt.Sprintf("radius_km must be in (0, %.0f]", maxNearbyRadiusKm))
			return
		}
		radius = v
	}

	limit := defaultNearbyLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > maxNearbyLimit {
			common.ErrorResponse(c, http.StatusBadRequest, fmt.Sprintf("limit must be in [1, %d]", maxNearbyLimit))
			return
		}
		limit = v
	}

	center := geo.Coordinate{Latitude: lat, Longitude: lng}
	sessions, err := h.service.Nearby(c.Request.Context(), center, radius, limit)
	if common.HandleServiceError(c, toAppError(err), "failed to list nearby sessions") {
		return
	}
	common.SuccessResponse(c, gin.H{"sessions": sessions, "count": len(sessions)})
}

// Stream handles GET /sessions/:id/ws
func (h *Handler) Stream(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.service.Get(c.Request.Context(), id); common.HandleServiceError(c, toAppError(err), "failed to open stream") {
		return
	}
	ws.ServeSession(c, h.hub, &h.upgrader, id)
}

func validate(c *gin.Context, req interface{}) bool {
	err := validation.ValidateStruct(req)
	if err == nil {
		return true
	}
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		common.AppErrorResponse(c, common.NewValidationError(verr.Error()))
		return false
	}
	common.ErrorResponse(c, http.StatusBadRequest, err.Error())
	return false
}

// toAppError maps service errors to HTTP errors. Unknown errors pass
// through and are answered with 500.
func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *directions.APIError
	var httpErr *httpclient.HTTPError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return common.NewNotFoundError("navigation session not found", err)
	case errors.Is(err, ErrSessionLimit):
		return common.NewTooManyRequestsError("too many active navigation sessions", err)
	case errors.Is(err, ErrRouteRequired):
		return common.NewBadRequestError(err.Error(), err)
	case errors.Is(err, navigation.ErrEmptyRoute), errors.Is(err, navigation.ErrInvalidRoute):
		return common.NewBadRequestError(err.Error(), err)
	case errors.Is(err, navigation.ErrNavigationEnded):
		return common.NewConflictError("navigation has already ended", err)
	case errors.Is(err, navigation.ErrLastStep):
		return common.NewConflictError("already on the last step", err)
	case errors.Is(err, directions.ErrNoRouteFound):
		return common.NewNotFoundError("no route found between the locations", err)
	case errors.As(err, &apiErr) && (apiErr.Status == "ZERO_RESULTS" || apiErr.Status == "NOT_FOUND"):
		return common.NewNotFoundError("no route found between the locations", err)
	case errors.As(err, &apiErr), errors.As(err, &httpErr), errors.Is(err, directions.ErrInvalidRouteData):
		return common.NewBadGatewayError("directions provider error", err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return common.NewServiceUnavailableError("directions provider temporarily unavailable", err)
	case errors.Is(err, ErrDirectionsUnavailable), errors.Is(err, ErrNearbyUnavailable):
		return common.NewServiceUnavailableError(err.Error(), err)
	default:
		return err
	}
}
