// Package function serves thumbnail processors as an Azure Functions custom handler.
package function

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/processor"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/response"
)

// Handler maps function names to processors.
type Handler struct {
	functions map[string]processor.Processor
	container string
	binding   string
	timeout   time.Duration
}

// NewHandler creates a handler. functions is keyed by the function name the host
// posts to, e.g. "ProcessUserPhoto".
func NewHandler(functions map[string]processor.Processor, container string, cfg Config) *Handler {
	binding := cfg.BlobBinding
	if binding == "" {
		binding = DefaultBlobBinding
	}
	return &Handler{
		functions: functions,
		container: container,
		binding:   binding,
		timeout:   cfg.InvocationTimeout,
	}
}

// RegisterRoutes registers one POST route per function.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	for name, p := range h.functions {
		r.POST("/"+name, h.invoke(name, p))
	}
}

func (h *Handler) invoke(name string, p processor.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		l := pkglog.Ctx(ctx).With().Str(pkglog.FieldFunction, name).Logger()

		var req InvokeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			l.Warn().Err(err).Msg("invalid invocation request")
			response.BadRequest(c, err.Error())
			return
		}
		blobName, err := req.BlobName()
		if err != nil {
			l.Warn().Err(err).Msg("invalid invocation request")
			response.BadRequest(c, err.Error())
			return
		}
		data, err := req.BlobData(h.binding)
		if err != nil {
			l.Warn().Err(err).Str(pkglog.FieldBlob, blobName).Msg("invalid invocation request")
			response.BadRequest(c, err.Error())
			return
		}

		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		ctx = pkglog.WithLogger(ctx, l.With().Str(pkglog.FieldContainer, h.container).Logger())

		res, err := p.Process(ctx, &processor.Invocation{Container: h.container, Name: blobName, Data: data})
		if err != nil {
			info := response.ErrorInfo{Message: err.Error()}
			var failure *processor.Failure
			if errors.As(err, &failure) {
				info.Code = string(failure.Kind)
				info.Stage = string(failure.Stage)
			}
			response.InternalError(c, info, fmt.Sprintf("Error processing the blob %s: %v", blobName, err))
			return
		}

		response.Success(c, res, successLog(res))
	}
}

func successLog(res *processor.Result) string {
	if res.Variant == processor.VariantOverwrite {
		return fmt.Sprintf("Thumbnail created and metadata updated for seller %s", res.PartitionKey)
	}
	return fmt.Sprintf("Thumbnail created and saved as %s", res.Output)
}
