package http

import (
	"net/http"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"
	"streamhub/pkg/errors"
	"streamhub/pkg/tracing"
	"streamhub/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type StreamHandler struct {
	streamService ports.StreamService
}

func NewStreamHandler(streamService ports.StreamService) *StreamHandler {
	return &StreamHandler{
		streamService: streamService,
	}
}

// SetupRoutes registers the stream routes behind auth.
func (h *StreamHandler) SetupRoutes(router gin.IRouter, auth gin.HandlerFunc) {
	api := router.Group("/streams", auth)
	{
		api.POST("", h.CreateStream)
		api.GET("", h.ListStreams)
		api.GET("/:id", h.GetStream)
		api.PUT("/:id", h.UpdateStream)
		api.DELETE("/:id", h.DeleteStream)
	}
}

type CreateStreamRequest struct {
	Title       string  `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
}

// UpdateStreamRequest holds the mutable fields. Absent fields stay untouched;
// id and timestamps are not accepted from clients.
type UpdateStreamRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsLive      *bool   `json:"is_live"`
}

// CreateStream accepts the fields either as a JSON body or as query parameters.
func (h *StreamHandler) CreateStream(c *gin.Context) {
	var req CreateStreamRequest
	var err error
	// Chunked bodies have no length, so they are only read when declared JSON.
	hasBody := c.Request.ContentLength > 0 ||
		(c.Request.ContentLength < 0 && c.ContentType() == binding.MIMEJSON)
	if hasBody {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindWith(&req, binding.Query)
	}
	if err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	if req.Description == nil {
		empty := ""
		req.Description = &empty
	}
	if err := validation.ValidateStreamTitle(req.Title); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateStreamDescription(req.Description); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	stream, err := h.streamService.CreateStream(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		_ = c.Error(err)
		return
	}

	tracing.AddSpanAttributes(c.Request.Context(), tracing.StreamIDKey.String(string(stream.ID)))
	c.JSON(http.StatusOK, stream)
}

func (h *StreamHandler) ListStreams(c *gin.Context) {
	streams, err := h.streamService.ListStreams(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if streams == nil {
		streams = []*domain.Stream{}
	}

	c.JSON(http.StatusOK, streams)
}

func (h *StreamHandler) GetStream(c *gin.Context) {
	streamID := h.streamID(c)

	stream, err := h.streamService.GetStream(c.Request.Context(), streamID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stream)
}

func (h *StreamHandler) UpdateStream(c *gin.Context) {
	streamID := h.streamID(c)

	var req UpdateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	if req.Title != nil {
		if err := validation.ValidateStreamTitle(*req.Title); err != nil {
			_ = c.Error(errors.NewInvalidInputError(err.Error()))
			return
		}
	}
	if err := validation.ValidateStreamDescription(req.Description); err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	patch := domain.StreamPatch{
		Title:       req.Title,
		Description: req.Description,
		IsLive:      req.IsLive,
	}

	stream, err := h.streamService.UpdateStream(c.Request.Context(), streamID, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stream)
}

func (h *StreamHandler) DeleteStream(c *gin.Context) {
	streamID := h.streamID(c)

	deleted, err := h.streamService.DeleteStream(c.Request.Context(), streamID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !deleted {
		_ = c.Error(domain.ErrStreamNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"deleted": streamID,
	})
}

func (h *StreamHandler) streamID(c *gin.Context) domain.StreamID {
	id := c.Param("id")
	tracing.AddSpanAttributes(c.Request.Context(), tracing.StreamIDKey.String(id))
	return domain.StreamID(id)
}
