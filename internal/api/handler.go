package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"carshop-display-backend/internal/catalog"
	"carshop-display-backend/internal/format"
	"carshop-display-backend/internal/hub"
	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/store"
)

// CatalogNotifier tells other instances that the service catalog changed.
type CatalogNotifier interface {
	PublishCatalogChanged(ctx context.Context) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	hub       *hub.Hub
	catalog   *catalog.Catalog
	store     store.Store
	format    *format.Formatter
	webpush   *webpush.Options
	notifier  CatalogNotifier
	responses *cache.Cache
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(h *hub.Hub, c *catalog.Catalog, s store.Store, f *format.Formatter, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		hub:     h,
		catalog: c,
		store:   s,
		format:  f,
		webpush: webpushOptions,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetCatalogNotifier makes catalog edits announce themselves through n.
func (h *Handler) SetCatalogNotifier(n CatalogNotifier) {
	h.notifier = n
}

// ReloadServices re-reads the catalog after another instance edited it and drops cached responses.
func (h *Handler) ReloadServices(ctx context.Context) {
	h.catalog.Reload(ctx)
	if h.responses != nil {
		h.responses.Flush()
	}
	log.Printf("services: catalog reloaded, %d services", len(h.catalog.List()))
}

func (h *Handler) announceCatalogChange(ctx context.Context) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.PublishCatalogChanged(ctx); err != nil {
		log.Printf("services: failed to announce catalog change: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrData):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrTransport):
		status = http.StatusBadGateway
	case errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
