package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/shiggsy365/bookstack/core/fetch"
	"github.com/shiggsy365/bookstack/core/mail"
	"github.com/shiggsy365/bookstack/internal/logger"
)

const (
	kindleCookie    = "kindle_email"
	kindleCookieAge = 365 * 24 * 60 * 60
	forbiddenBody   = 200
)

// Handler serves the /api routes.
type Handler struct {
	Lib Library
}

func NewHandler(lib Library) *Handler {
	return &Handler{Lib: lib}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.getSettings)
	rg.POST("/settings", h.saveSettings)

	opds := rg.Group("/opds")
	opds.GET("/image-proxy", h.imageProxy)
	opds.GET("/browse", h.browse)
	opds.POST("/check-library", h.checkLibrary)
	opds.POST("/send-to-kindle", h.sendToKindle)

	eph := rg.Group("/ephemera")
	eph.GET("/search", h.searchReleases)
	eph.POST("/download", h.requestDownload)
	eph.GET("/queue", h.queue)

	bsio := rg.Group("/bookseriesinorder")
	bsio.GET("/search", h.searchAuthors)
	bsio.GET("/author", h.authorSeries)
}

func (h *Handler) getSettings(c *gin.Context) {
	email, _ := c.Cookie(kindleCookie)
	c.JSON(http.StatusOK, gin.H{"kindle_email": email})
}

type settingsReq struct {
	KindleEmail string `json:"kindle_email"`
}

func (h *Handler) saveSettings(c *gin.Context) {
	var req settingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	c.SetCookie(kindleCookie, req.KindleEmail, kindleCookieAge, "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (h *Handler) imageProxy(c *gin.Context) {
	width, _ := strconv.Atoi(c.Query("w"))
	data, contentType, err := h.Lib.CoverImage(c.Request.Context(), c.Query("url"), width)
	if err != nil {
		logger.For(c.Request.Context()).WithError(err).Debug("image proxy failed")
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) browse(c *gin.Context) {
	page, target, err := h.Lib.Browse(c.Request.Context(), c.Query("url"))
	if err == nil {
		c.JSON(http.StatusOK, page)
		return
	}

	logger.For(c.Request.Context()).WithError(err).Warnf("browse %s failed", target)
	var se *fetch.StatusError
	switch {
	case errors.Is(err, fetch.ErrForbidden) && errors.As(err, &se):
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "403 Forbidden",
			"details":  fmt.Sprintf(`Access denied at %s. Check "Access OPDS" in Booklore settings.`, target),
			"url":      target,
			"response": truncate(se.Body, forbiddenBody),
		})
	case errors.As(err, &se):
		c.JSON(se.Code, gin.H{"error": "HTTP Error: " + err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Connection Error: " + err.Error()})
	}
}

type checkReq struct {
	Titles []string `json:"titles"`
	Author string   `json:"author"`
}

func (h *Handler) checkLibrary(c *gin.Context) {
	var req checkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	results := h.Lib.CheckLibrary(c.Request.Context(), req.Titles, req.Author)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type kindleReq struct {
	URL string `json:"url"`
}

func (h *Handler) sendToKindle(c *gin.Context) {
	email, _ := c.Cookie(kindleCookie)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Kindle email not configured"})
		return
	}
	var req kindleReq
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No URL provided"})
		return
	}

	name, err := h.Lib.SendToKindle(c.Request.Context(), email, req.URL)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "sent", "filename": name})
	case errors.Is(err, mail.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SMTP credentials not configured in server"})
	default:
		logger.For(c.Request.Context()).WithError(err).Error("send to kindle failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) searchReleases(c *gin.Context) {
	releases, err := h.Lib.SearchReleases(c.Request.Context(), c.Query("q"))
	if err != nil {
		connectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, releases)
}

type downloadReq struct {
	MD5   string `json:"md5"`
	Title string `json:"title"`
}

func (h *Handler) requestDownload(c *gin.Context) {
	var req downloadReq
	_ = c.ShouldBindJSON(&req)
	if req.MD5 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing MD5"})
		return
	}
	raw, err := h.Lib.RequestDownload(c.Request.Context(), req.MD5, req.Title)
	if err != nil {
		connectionError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (h *Handler) queue(c *gin.Context) {
	raw, err := h.Lib.Queue(c.Request.Context())
	if err != nil {
		connectionError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (h *Handler) searchAuthors(c *gin.Context) {
	hits, err := h.Lib.SearchAuthors(c.Request.Context(), c.Query("q"))
	if err != nil {
		connectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, hits)
}

func (h *Handler) authorSeries(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No URL provided"})
		return
	}
	page, err := h.Lib.AuthorSeries(c.Request.Context(), pageURL)
	if err != nil {
		connectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func connectionError(c *gin.Context, err error) {
	logger.For(c.Request.Context()).WithError(err).Error("upstream request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Connection error: " + err.Error()})
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
