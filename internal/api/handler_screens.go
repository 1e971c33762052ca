package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/mw"
)

type assignRequest struct {
	CustomerName string `json:"customerName"`
	Brand        string `json:"brand"`
	CarType      string `json:"carType"`
	Service      string `json:"service"`
	LicensePlate string `json:"licensePlate"`
	Year         string `json:"year"`
}

// GetMe returns the actor behind the request.
func (h *Handler) GetMe(c *gin.Context) {
	actor := mw.ActorFrom(c)
	c.JSON(http.StatusOK, gin.H{"name": actor.Name, "authorized": actor.Authorized})
}

// ListScreens returns the whole slot table.
func (h *Handler) ListScreens(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Table())
}

// GetScreen returns the payload one TV view renders.
func (h *Handler) GetScreen(c *gin.Context) {
	screenID := c.Param("id")
	slot, ok := h.hub.Table().Slot(screenID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "screen not found"})
		return
	}
	c.JSON(http.StatusOK, model.PayloadFromRecord(screenID, slot.Record))
}

// AssignScreen puts a vehicle on a screen.
func (h *Handler) AssignScreen(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	slot, err := h.hub.Assign(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), model.SlotRecord{
		CustomerName: req.CustomerName,
		Brand:        req.Brand,
		CarType:      req.CarType,
		Service:      req.Service,
		LicensePlate: req.LicensePlate,
		Year:         req.Year,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// ClearScreen returns a screen to standby.
func (h *Handler) ClearScreen(c *gin.Context) {
	slot, err := h.hub.Remove(c.Request.Context(), mw.ActorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// RefreshScreens reloads every screen from the system of record.
func (h *Handler) RefreshScreens(c *gin.Context) {
	table, err := h.hub.Refresh(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// GetDashboard returns one card per screen for the operator view.
func (h *Handler) GetDashboard(c *gin.Context) {
	table := h.hub.Table()
	c.JSON(http.StatusOK, gin.H{
		"version": table.Version,
		"cards":   h.format.Cards(table),
	})
}

// GetScreenHistory lists past assignments of a screen, newest first.
func (h *Handler) GetScreenHistory(c *gin.Context) {
	screenID := c.Param("id")
	if _, ok := h.hub.Table().Slot(screenID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "screen not found"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	history, err := h.store.ListHistory(c.Request.Context(), screenID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}
