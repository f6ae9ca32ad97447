package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SergeiKhy/shortlink/internal/middleware"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service  service.LinkService
	resolver *service.Resolver
	logger   *zap.Logger
}

func NewLinkHandler(service service.LinkService, resolver *service.Resolver, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service:  service,
		resolver: resolver,
		logger:   logger,
	}
}

type CreateLinkRequest struct {
	URL       string     `json:"url" binding:"required"`
	Key       string     `json:"key" binding:"required"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	UserID    *string    `json:"userId,omitempty"`
}

type ArchiveLinkResponse struct {
	Key      string `json:"key"`
	Archived bool   `json:"archived"`
}

type ClicksResponse struct {
	Clicks int64 `json:"clicks"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateLink godoc
// @Summary Create a short link
// @Description Create a short link for the given key. Title, description and image are fetched from the destination page.
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link creation request"
// @Success 201 {object} models.Link
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /link [post]
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "url and key are required",
		})
		return
	}

	input := &models.CreateLinkInput{
		URL:       strings.TrimSpace(req.URL),
		Key:       req.Key,
		ExpiresAt: req.ExpiresAt,
		UserID:    req.UserID,
	}

	// Пользователь из токена важнее поля запроса
	if userID, ok := middleware.UserIDFromContext(c); ok {
		input.UserID = &userID
	}

	link, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, link)
}

// ListLinks godoc
// @Summary List short links
// @Description Paginated list of links, 10 per page
// @Tags links
// @Produce json
// @Param userId query string false "Owner filter"
// @Param search query string false "Substring of key, url, title or description"
// @Param sort query string false "Sort field" Enums(key, url, title, description, clicks, createdAt, updatedAt, expiresAt)
// @Param page query int false "Page number" default(1)
// @Param showArchived query bool false "Include archived links"
// @Success 200 {object} models.LinkPage
// @Failure 400 {object} ErrorResponse
// @Router /links [get]
func (h *LinkHandler) ListLinks(c *gin.Context) {
	filter := models.ListFilter{
		UserID: c.Query("userId"),
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   c.Query("sort"),
		Page:   1,
	}
	if filter.UserID == "" {
		filter.UserID, _ = middleware.UserIDFromContext(c)
	}

	if p := c.Query("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_page",
				Message: "page must be a positive integer",
			})
			return
		}
		filter.Page = page
	}

	if v := c.Query("showArchived"); v != "" {
		show, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "showArchived must be a boolean",
			})
			return
		}
		filter.IncludeArchived = show
	}

	page, err := h.service.ListLinks(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetLink godoc
// @Summary Get a short link
// @Tags links
// @Produce json
// @Param key path string true "Short key"
// @Success 200 {object} models.Link
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /link/{key} [get]
func (h *LinkHandler) GetLink(c *gin.Context) {
	link, err := h.service.GetLink(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// ArchiveLink godoc
// @Summary Archive a short link
// @Description Archived links stop redirecting. The transition is one-way.
// @Tags links
// @Produce json
// @Param key path string true "Short key"
// @Success 200 {object} ArchiveLinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /link/{key}/archive [put]
func (h *LinkHandler) ArchiveLink(c *gin.Context) {
	key := c.Param("key")
	if err := h.service.ArchiveLink(c.Request.Context(), key); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ArchiveLinkResponse{Key: strings.Trim(key, "/"), Archived: true})
}

// GetClicks godoc
// @Summary Get click count
// @Tags links
// @Produce json
// @Param key path string true "Short key"
// @Success 200 {object} ClicksResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /link/{key}/clicks [get]
func (h *LinkHandler) GetClicks(c *gin.Context) {
	clicks, err := h.service.GetClicks(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ClicksResponse{Clicks: clicks})
}

// Redirect godoc
// @Summary Follow a short link
// @Description Humans are redirected to the destination, link-unfurling bots get an HTML page with Open Graph tags
// @Tags redirect
// @Produce html
// @Param key path string true "Short key"
// @Success 200 {string} string "Preview HTML"
// @Success 302 {object} nil
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /{key} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	h.resolve(c, c.Param("key"))
}

// RedirectPath обслуживает ключи со слэшами, которые не совпали ни с одним маршрутом.
// Только GET: HEAD от проверщиков ссылок не должен считаться кликом.
func (h *LinkHandler) RedirectPath(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Route not found",
		})
		return
	}
	h.resolve(c, strings.Trim(c.Request.URL.Path, "/"))
}

func (h *LinkHandler) resolve(c *gin.Context, key string) {
	res, err := h.resolver.Resolve(c.Request.Context(), key, c.Request.UserAgent())
	if err != nil {
		h.respondError(c, err)
		return
	}

	switch res.Kind {
	case service.ResolutionPreview:
		c.Data(http.StatusOK, "text/html; charset=utf-8", res.HTML)
	default:
		c.Redirect(http.StatusFound, res.URL)
	}
}

// respondError переводит ошибки сервиса в HTTP ответ
func (h *LinkHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   validationCode(err),
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrKeyConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "key_conflict",
			Message: "Key is already taken",
		})
	case errors.Is(err, repository.ErrAlreadyArchived):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "already_archived",
			Message: "Link is already archived",
		})
	case errors.Is(err, repository.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
	case errors.Is(err, service.ErrLinkGone):
		c.JSON(http.StatusGone, ErrorResponse{
			Error:   "gone",
			Message: "Link has expired or was archived",
		})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
}

func validationCode(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyKey):
		return "missing_key"
	case errors.Is(err, service.ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, service.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, service.ErrExpiryInPast):
		return "invalid_expiry"
	case errors.Is(err, repository.ErrInvalidSort):
		return "invalid_sort"
	case errors.Is(err, service.ErrMissingFields):
		return "missing_fields"
	default:
		return "invalid_request"
	}
}
