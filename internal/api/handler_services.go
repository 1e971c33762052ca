package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carshop-display-backend/internal/model"
)

type addServiceRequest struct {
	Label           string `json:"label" binding:"required"`
	DurationMinutes int    `json:"durationMinutes"`
}

// ListServices returns the working catalog.
func (h *Handler) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.List())
}

// AddService appends a service, identified by its label, and persists the catalog.
func (h *Handler) AddService(c *gin.Context) {
	var req addServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	def, err := h.catalog.Add(c.Request.Context(), model.ServiceDefinition{
		Label:           req.Label,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.announceCatalogChange(c.Request.Context())
	c.JSON(http.StatusCreated, def)
}

// RemoveService drops the service at a position from the working catalog.
// An out-of-range position leaves the list as it is. The change is kept in memory until SaveServices.
func (h *Handler) RemoveService(c *gin.Context) {
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position must be an integer"})
		return
	}
	if !h.catalog.Remove(position) {
		log.Printf("services: remove at position %d ignored, out of range", position)
	}
	c.JSON(http.StatusOK, h.catalog.List())
}

// SaveServices persists the working catalog.
func (h *Handler) SaveServices(c *gin.Context) {
	if err := h.catalog.Save(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	h.announceCatalogChange(c.Request.Context())
	c.JSON(http.StatusOK, h.catalog.List())
}

// EstimateService previews when a service started at ?at= (default now) would be done.
func (h *Handler) EstimateService(c *gin.Context) {
	service := c.Query("service")
	if service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service is required"})
		return
	}

	at := h.now()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at must be an RFC3339 timestamp"})
			return
		}
		at = parsed
	}

	def, known := h.catalog.Lookup(service)
	finish, _ := h.catalog.EstimatedFinishDate(service, at)
	c.JSON(http.StatusOK, gin.H{
		"service":           service,
		"known":             known,
		"durationMinutes":   def.DurationMinutes,
		"estimatedFinishAt": finish,
		"display":           h.format.DateTime(&finish),
	})
}
