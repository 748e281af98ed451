package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"mangascout/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	minQueryLength = 2
	defaultLimit   = 50
	maxLimit       = 200

	statusClientClosed = 499
)

type handler struct {
	svc Service
	log zerolog.Logger
}

type sourceErrorResponse struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type searchResponse struct {
	Query   string                `json:"query"`
	Total   int                   `json:"total"`
	Results []domain.Result       `json:"results"`
	Errors  []sourceErrorResponse `json:"errors,omitempty"`
	Partial bool                  `json:"partial"`
}

func health(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(startTime).Round(time.Second).String(),
		})
	}
}

func (h *handler) sources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.svc.Sources()})
}

func (h *handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if utf8.RuneCountInString(query) < minQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q must be at least 2 characters"})
		return
	}

	limit := parseInt(c.Query("limit"), defaultLimit)
	if limit <= 0 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
		return
	}

	results, errs, err := h.svc.Search(c.Request.Context(), query, c.DefaultQuery("source", "all"))
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := searchResponse{
		Query:   query,
		Total:   len(results),
		Results: results,
		Partial: len(errs) > 0,
	}
	if len(resp.Results) > limit {
		resp.Results = resp.Results[:limit]
	}
	if resp.Results == nil {
		resp.Results = []domain.Result{}
	}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, sourceErrorResponse{Source: e.Source, Error: e.Err.Error()})
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) details(c *gin.Context) {
	u, ok := requireURL(c)
	if !ok {
		return
	}

	title, err := h.svc.GetDetails(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, title)
}

func (h *handler) images(c *gin.Context) {
	u, ok := requireURL(c)
	if !ok {
		return
	}

	images, err := h.svc.GetChapterImages(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u, "count": len(images), "images": images})
}

func requireURL(c *gin.Context) (string, bool) {
	u := strings.TrimSpace(c.Query("url"))
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) url"})
		return "", false
	}
	return u, true
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": domain.KindOf(err).String()})
}

func statusFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return statusClientClosed
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindNoImagesFound:
		return http.StatusNotFound
	case domain.KindInvalidConfig:
		return http.StatusBadRequest
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindUnreachable, domain.KindHTTPStatus, domain.KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
