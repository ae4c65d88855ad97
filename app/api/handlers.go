package api

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/paper-comb/app/database"
	"github.com/lysyi3m/paper-comb/app/documents"
	"github.com/lysyi3m/paper-comb/app/feed"
	"github.com/lysyi3m/paper-comb/app/fetcher"
)

const htmlContentType = "text/html; charset=utf-8"

// NewHandler accepts a nil docRepo when the document cache is disabled.
func NewHandler(service DocumentServiceInterface, templates TemplateListerInterface,
	configCache *feed.ConfigCache, docRepo database.DocumentRepository, maxBodyBytes int64) *Handler {
	return &Handler{
		documents:    service,
		templates:    templates,
		configCache:  configCache,
		docRepo:      docRepo,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *Handler) RenderFeed(c *gin.Context) {
	templateName := c.Query("template")

	body := c.Request.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBodyBytes)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Feed too large",
				"limit": maxBytesErr.Limit,
			})
			return
		}
		slog.Error("Failed to read request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	res, err := h.documents.Render(raw, templateName)
	if err != nil {
		h.writeBuildError(c, "", err)
		return
	}

	h.writeDocument(c, res)
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	if !feedConfig.Settings.Enabled {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed is disabled"})
		return
	}

	page, err := parsePage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	refresh := c.Query("refresh") == "true"

	res, err := h.documents.RenderSource(c.Request.Context(), feedConfig, page, c.Query("template"), refresh)
	if err != nil {
		h.writeBuildError(c, name, err)
		return
	}

	c.Header("X-Feed-Name", name)
	h.writeDocument(c, res)
}

func (h *Handler) GetTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"templates": h.templates.Names(),
		"default":   feed.DefaultTemplate,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()
	health["templates"] = len(h.templates.Names())
	health["cache_enabled"] = h.docRepo != nil

	if h.docRepo != nil {
		if documentCount, err := h.docRepo.GetDocumentCount(); err == nil {
			health["documents"] = documentCount
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))

	for _, feedConfig := range configs {
		sources = append(sources, sourceInfo(feedConfig))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIGetSourceDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	details := sourceInfo(feedConfig)

	if h.docRepo != nil {
		pageSize := cmp.Or(feedConfig.Settings.PageSize, feed.DefaultPageSize)
		templateName := cmp.Or(feedConfig.Settings.Template, feed.DefaultTemplate)
		key := database.SourceKey(name, 0, pageSize, feed.FiltersHash(feedConfig.Filters))
		if doc, err := h.docRepo.GetDocument(templateName, key); err == nil && doc != nil {
			details["cached_first_page"] = map[string]interface{}{
				"id":            doc.ID,
				"entries":       doc.EntryCount,
				"total_results": doc.TotalResults,
				"created_at":    doc.CreatedAt,
			}
		}
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIReloadSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	feedConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded successfully",
		"source":  sourceInfo(feedConfig),
	})
}

func (h *Handler) writeDocument(c *gin.Context, res *documents.Result) {
	cacheStatus := "MISS"
	if res.Cached {
		cacheStatus = "HIT"
	}

	c.Header("X-Feed-Template", res.Template)
	c.Header("X-Feed-Entries", strconv.Itoa(res.Entries))
	c.Header("X-Feed-Total-Results", strconv.Itoa(res.TotalResults))
	c.Header("X-Cache", cacheStatus)

	c.Data(http.StatusOK, htmlContentType, []byte(res.Body))
}

func (h *Handler) writeBuildError(c *gin.Context, feedName string, err error) {
	var malformed *feed.MalformedFeedError
	var notFound *feed.TemplateNotFoundError
	var renderErr *feed.RenderError
	var fetchErr *documents.FetchError

	switch {
	case errors.As(err, &malformed):
		slog.Warn("Malformed feed", "feed", feedName, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Malformed feed", "details": malformed.Reason})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found", "template": notFound.Name})
	case errors.As(err, &renderErr):
		slog.Error("Render error", "feed", feedName, "template", renderErr.Template, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render document", "template": renderErr.Template})
	case errors.As(err, &fetchErr):
		slog.Error("Fetch error", "feed", feedName, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		response := gin.H{"error": "Failed to fetch feed"}
		var httpErr *fetcher.HTTPError
		if errors.As(err, &httpErr) {
			response["upstream_status"] = httpErr.StatusCode
		}
		c.JSON(status, response)
	default:
		slog.Error("Document build error", "feed", feedName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parsePage(c *gin.Context) (fetcher.Page, error) {
	var page fetcher.Page

	if value := c.Query("start"); value != "" {
		start, err := strconv.Atoi(value)
		if err != nil || start < 0 {
			return page, errors.New("start must be a non-negative integer")
		}
		page.Start = start
	}

	if value := c.Query("max_results"); value != "" {
		maxResults, err := strconv.Atoi(value)
		if err != nil || maxResults < 1 || maxResults > feed.MaxPageSize {
			return page, fmt.Errorf("max_results must be between 1 and %d", feed.MaxPageSize)
		}
		page.MaxResults = maxResults
	}

	return page, nil
}

func sourceInfo(feedConfig *feed.Config) map[string]interface{} {
	return map[string]interface{}{
		"name":             feedConfig.Name,
		"url":              feedConfig.URL,
		"enabled":          feedConfig.Settings.Enabled,
		"template":         feedConfig.Settings.Template,
		"page_size":        feedConfig.Settings.PageSize,
		"timeout":          (time.Duration(feedConfig.Settings.Timeout) * time.Second).String(),
		"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
	}
}
