package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/services"
)

// TagHandler handles tag-related requests
type TagHandler struct {
	tagService   services.TagServicer
	auditService services.AuditServicer
}

// NewTagHandler creates a new TagHandler
func NewTagHandler(tagService services.TagServicer, auditService services.AuditServicer) *TagHandler {
	return &TagHandler{tagService: tagService, auditService: auditService}
}

// TagRequest represents the payload for creating or renaming a tag
type TagRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// CreateMultipleTagsRequest represents the payload for bulk tag creation
type CreateMultipleTagsRequest struct {
	Names []string `json:"names" binding:"required,min=1,dive,max=255"`
}

// CreateTag creates a single tag
// @Summary     Create a tag
// @Tags        tags
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TagRequest true "Tag name"
// @Success     201 {object} models.Tag "Tag created"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /tags [post]
func (h *TagHandler) CreateTag(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	tag, err := h.tagService.CreateTag(actor, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "tag.create", "tag", tag.ID, c.ClientIP(), nil)

	c.JSON(http.StatusCreated, gin.H{"tag": tag})
}

// CreateMultipleTags creates tags in bulk
// @Summary     Create multiple tags
// @Description Create several tags at once. Names are trimmed and deduplicated, existing names are reused.
// @Tags        tags
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateMultipleTagsRequest true "Tag names"
// @Success     201 {array} models.Tag "Resulting tags"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /tags/multiple [post]
func (h *TagHandler) CreateMultipleTags(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateMultipleTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	tags := h.tagService.CreateMultipleTags(actor, req.Names)

	c.JSON(http.StatusCreated, gin.H{"tags": tags})
}

// GetTags retrieves all of the user's tags
// @Summary     Get all tags
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Tag "List of tags"
// @Router      /tags [get]
func (h *TagHandler) GetTags(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tags, err := h.tagService.GetTagsForUser(actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// GetTagsByFrequency retrieves tags ordered by usage
// @Summary     Get tags by usage frequency
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} services.TagWithCount "Tags with counts, most used first"
// @Router      /tags/frequency [get]
func (h *TagHandler) GetTagsByFrequency(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tags, err := h.tagService.GetTagsByFrequency(actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// GetTagsWithTransactionCount retrieves tags with usage counts
// @Summary     Get tags with transaction counts
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} services.TagWithCount "Tags with counts"
// @Router      /tags/with-transaction-count [get]
func (h *TagHandler) GetTagsWithTransactionCount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tags, err := h.tagService.GetTagsWithTransactionCount(actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// SearchTags retrieves tags whose names contain a term
// @Summary     Search tags
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Param       q query string true "Search term"
// @Success     200 {array} models.Tag "Matching tags"
// @Router      /tags/search [get]
func (h *TagHandler) SearchTags(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	term := c.Query("q")
	if term == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Search term is required"))
		return
	}

	tags, err := h.tagService.SearchTags(actor, term)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// GetTag retrieves a single tag
// @Summary     Get tag by ID
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Tag ID"
// @Success     200 {object} models.Tag "Tag"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /tags/{id} [get]
func (h *TagHandler) GetTag(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tagID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tag, err := h.tagService.GetTagByID(actor, tagID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tag": tag})
}

// UpdateTag renames a tag
// @Summary     Rename a tag
// @Tags        tags
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Tag ID"
// @Param       request body TagRequest true "New name"
// @Success     200 {object} models.Tag "Updated tag"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /tags/{id} [put]
func (h *TagHandler) UpdateTag(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tagID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	tag, err := h.tagService.UpdateTag(actor, tagID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "tag.update", "tag", tagID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"tag": tag})
}

// DeleteTag removes a tag
// @Summary     Delete a tag
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Tag ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /tags/{id} [delete]
func (h *TagHandler) DeleteTag(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tagID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.tagService.DeleteTag(actor, tagID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "tag.delete", "tag", tagID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}
