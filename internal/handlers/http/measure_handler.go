package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"perfprobe/internal/core/domain"
	"perfprobe/internal/core/ports"
	"perfprobe/pkg/errors"
	"perfprobe/pkg/validation"
)

type MeasureHandler struct {
	measurementService ports.MeasurementService
	defaultHeadless    bool
}

// NewMeasureHandler creates the handler. defaultHeadless applies when a
// request omits "headless".
func NewMeasureHandler(measurementService ports.MeasurementService, defaultHeadless bool) *MeasureHandler {
	return &MeasureHandler{
		measurementService: measurementService,
		defaultHeadless:    defaultHeadless,
	}
}

func (h *MeasureHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api")
	{
		api.POST("/measure", h.Measure)
	}
}

type measureRequest struct {
	URL       string `json:"url"`
	Headless  *bool  `json:"headless"`
	TimeoutMs int64  `json:"timeout_ms"`
}

// Measure runs one page measurement. Failures inside the browser still
// answer 200 with the error in the envelope.
func (h *MeasureHandler) Measure(c *gin.Context) {
	var req measureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.WrapError(err, errors.ErrCodeInvalidInput, "invalid request body", http.StatusBadRequest))
		return
	}

	headless := h.defaultHeadless
	if req.Headless != nil {
		headless = *req.Headless
	}

	timeout, err := validation.TimeoutFromMillis(req.TimeoutMs)
	if err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	result, err := h.measurementService.Measure(c.Request.Context(), domain.MeasurementRequest{
		URL:      req.URL,
		Headless: headless,
		Timeout:  timeout,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
