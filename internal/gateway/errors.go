package gateway

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultRequestTimeout = 15 * time.Second

// httpStatus maps a service error code to an HTTP status
func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": message}. Server-side failures are logged
// and answered with fallback so internal details stay out of responses.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	st, ok := status.FromError(err)
	if !ok {
		logger.Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}

	code := httpStatus(st.Code())
	if code >= http.StatusInternalServerError {
		logger.Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(code, gin.H{"error": fallback})
		return
	}
	c.JSON(code, gin.H{"error": st.Message()})
}

// parseID reads a positive integer path parameter, answering 400 when it is malformed
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// workflowContext detaches the workflow from the client connection so a
// disconnect does not abort it halfway, while still bounding its duration.
func workflowContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), timeout)
}
