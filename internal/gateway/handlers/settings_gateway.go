package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mgm-billing/internal/database/models"
	settingshandler "mgm-billing/internal/services/settings/handler"
)

type SettingsHTTPHandler struct {
	settings *settingshandler.SettingsHandler
}

func NewSettingsHTTPHandler(settings *settingshandler.SettingsHandler) *SettingsHTTPHandler {
	return &SettingsHTTPHandler{
		settings: settings,
	}
}

type ListSubcategoriesQuery struct {
	CategoryID *int64 `form:"category_id,omitempty"`
}

func (h *SettingsHTTPHandler) GetSettings(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	settings, err := h.settings.GetSettings(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("settings retrieved successfully", settings))
}

func (h *SettingsHTTPHandler) UpdateSettings(c *gin.Context) {
	var req settingshandler.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	settings, err := h.settings.UpdateSettings(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("settings updated successfully", settings))
}

func (h *SettingsHTTPHandler) ListCategories(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	categories, err := h.settings.ListCategories(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("categories retrieved successfully", categories, gin.H{"total": len(categories)}))
}

func (h *SettingsHTTPHandler) CreateCategory(c *gin.Context) {
	var req settingshandler.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	category, err := h.settings.CreateCategory(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("category created successfully", category))
}

func (h *SettingsHTTPHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req settingshandler.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	category, err := h.settings.UpdateCategory(ctx, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("category updated successfully", category))
}

func (h *SettingsHTTPHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.settings.DeleteCategory(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("category deleted successfully", nil))
}

func (h *SettingsHTTPHandler) ListSubcategories(c *gin.Context) {
	var query ListSubcategoriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var (
		subcategories []models.Subcategory
		err           error
	)
	if query.CategoryID != nil {
		subcategories, err = h.settings.SubcategoriesOf(ctx, *query.CategoryID)
	} else {
		subcategories, err = h.settings.ListSubcategories(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("subcategories retrieved successfully", subcategories, gin.H{"total": len(subcategories)}))
}

func (h *SettingsHTTPHandler) CreateSubcategory(c *gin.Context) {
	var req settingshandler.SubcategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sub, err := h.settings.CreateSubcategory(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("subcategory created successfully", sub))
}

func (h *SettingsHTTPHandler) UpdateSubcategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req settingshandler.SubcategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sub, err := h.settings.UpdateSubcategory(ctx, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("subcategory updated successfully", sub))
}

func (h *SettingsHTTPHandler) DeleteSubcategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.settings.DeleteSubcategory(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("subcategory deleted successfully", gin.H{"id": strconv.FormatInt(id, 10)}))
}
