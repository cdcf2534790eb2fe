package utils

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mss-commerce/backend/services/common/logger"
)

type ForwardOptions struct {
	TargetBase string
}

// ForwardRequest proxies the request to a downstream service, preserving
// method, body, query string and headers.
func ForwardRequest(c *gin.Context, opts ForwardOptions) {
	targetPath := c.Param("any")

	targetURL := opts.TargetBase + targetPath
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	logger.Log.Debug("forwarding request",
		zap.String("method", c.Request.Method),
		zap.String("url", targetURL),
	)

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, c.Request.Body)
	if err != nil {
		logger.Log.Error("failed to create forward request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
		return
	}

	for k, v := range c.Request.Header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Log.Error("failed to forward request",
			zap.String("url", targetURL),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "service unreachable"})
		return
	}
	defer resp.Body.Close()

	for k, v := range resp.Header {
		lowerKey := strings.ToLower(k)
		// CORS is the gateway's job; hop-by-hop headers must not cross.
		if strings.HasPrefix(lowerKey, "access-control-") {
			continue
		}
		if lowerKey == "connection" || lowerKey == "keep-alive" ||
			lowerKey == "proxy-authenticate" || lowerKey == "proxy-authorization" ||
			lowerKey == "te" || lowerKey == "trailers" ||
			lowerKey == "transfer-encoding" || lowerKey == "upgrade" {
			continue
		}
		c.Header(k, strings.Join(v, ","))
	}

	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logger.Log.Error("failed to copy response body", zap.Error(err))
	}
}
