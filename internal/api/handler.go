// Package api exposes classification over HTTP.
package api

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"actiontag/internal/classification"
	"actiontag/internal/constants"
	"actiontag/internal/logger"
	"actiontag/internal/store"
	"actiontag/pkg/classifier"
	"actiontag/pkg/errors"
	"actiontag/pkg/logging"
	"actiontag/pkg/models"
)

var errPayloadTooLarge = errors.NewError("PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge)

type RuleResponse struct {
	Priority int      `json:"priority"`
	Keys     []string `json:"keys"`
	Action   string   `json:"action"`
}

type Handler struct {
	service *classification.Service
	sink    store.Sink
	logger  logger.Logger
}

// NewHandler builds the HTTP handler. sink may be nil, in which case
// requests naming a document are rejected.
func NewHandler(service *classification.Service, sink store.Sink, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		sink:    sink,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/classify", h.Classify)
		v1.GET("/rules", h.ListRules)
		v1.GET("/last-seen", h.LastSeen)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.logger.DebugwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// Classify annotates the JSON body with its action. With ?name= the
// annotated document is also written to the configured sink.
func (h *Handler) Classify(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.handleError(c, errPayloadTooLarge.WithDetail("limit_bytes", tooLarge.Limit))
			return
		}
		h.handleError(c, errors.ErrDecode.WithCause(err))
		return
	}

	value, err := classifier.Decode(body)
	if err != nil {
		h.handleError(c, err)
		return
	}

	name := c.Query("name")
	if name != "" {
		if h.sink == nil {
			h.handleError(c, errors.ErrServiceUnavailable.WithDetail("message", "no sink configured"))
			return
		}
		if err := store.ValidateName(name); err != nil {
			h.handleError(c, err)
			return
		}
		ctx = logging.WithDocumentName(ctx, name)
	}

	doc, err := h.service.ClassifyDocument(ctx, value, classification.OriginHTTP)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if name == "" {
		c.JSON(http.StatusOK, doc)
		return
	}

	location, err := h.sink.Write(ctx, name, doc)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.logger.InfowCtx(ctx, "Stored classified document",
		"location", location,
		"action", doc[models.ActionKey],
	)
	c.Header("X-Document-Location", location)
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListRules(c *gin.Context) {
	rules := h.service.Rules()
	out := make([]RuleResponse, 0, len(rules))
	for i, rule := range rules {
		out = append(out, RuleResponse{
			Priority: i,
			Keys:     rule.SortedKeys(),
			Action:   string(rule.Action),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) LastSeen(c *gin.Context) {
	entry, err := h.service.LastSeen(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
