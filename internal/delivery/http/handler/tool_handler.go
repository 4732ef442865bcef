package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"todoagent/internal/tools"
	. "todoagent/pkg/config"
	. "todoagent/pkg/response"
	. "todoagent/pkg/tracing"
)

// ToolOutput is the rendered result of a tool call
type ToolOutput struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
}

// ToolHandler exposes the tool registry to an agent runtime over HTTP
type ToolHandler struct {
	registry *tools.Registry
	Logger   *LokiLogger
}

func NewToolHandler(registry *tools.Registry, logger *LokiLogger) *ToolHandler {
	if logger == nil {
		logger = NewNopLogger()
	}

	return &ToolHandler{registry: registry, Logger: logger}
}

func (h *ToolHandler) ListTools(c *gin.Context) {
	SendSuccess(c, http.StatusOK, h.registry.List())
}

// InvokeTool decodes a JSON object of arguments, which may be empty, and
// runs the named tool.
func (h *ToolHandler) InvokeTool(c *gin.Context) {
	name := c.Param("name")

	ctx, span := CreateChildSpan(c.Request.Context(), "handler.tool.InvokeTool", []attribute.KeyValue{
		attribute.String("tool.name", name),
	})
	defer span.End()

	args := map[string]any{}
	if err := c.ShouldBindJSON(&args); err != nil && !errors.Is(err, io.EOF) {
		SendBadRequestError(c, "arguments", "arguments must be a JSON object")
		return
	}

	output, err := h.registry.Execute(ctx, name, args)

	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		SendNotFoundError(c, "Unknown tool '"+name+"'")
		return
	case errors.Is(err, tools.ErrInvalidArguments):
		SendBadRequestError(c, "arguments", err.Error())
		return
	case err != nil:
		AddSpanError(span, err)
		LogError(ctx, h.Logger, err, "Tool failed", zap.String("tool", name))
		SendInternalError(c, "Tool failed")
		return
	}

	c.JSON(http.StatusOK, ToolOutput{Tool: name, Output: output})
}
