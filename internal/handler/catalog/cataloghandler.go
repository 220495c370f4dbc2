package cataloghandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Gagansidh-u/studio/internal/catalog"
	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Items lists the catalog, optionally filtered by ?platform=.
func (h CatalogHandler) Items(w http.ResponseWriter, r *http.Request) {
	var items []domain.CatalogItem

	if platform := r.URL.Query().Get("platform"); platform != "" {
		items = h.catalog.ByPlatform(platform)
		if len(items) == 0 {
			http.Error(w, "unknown platform", http.StatusNotFound)
			return
		}
	} else {
		items = h.catalog.All()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(items); err != nil {
		logger.Log.Error("error while encoding catalog to JSON", logger.Error(err))
	}
}

func (h CatalogHandler) Item(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	item, err := h.catalog.ByID(itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}

		logger.Log.Error("error while fetching catalog item", logger.String("item_id", itemID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(item); err != nil {
		logger.Log.Error("error while encoding catalog item to JSON", logger.Error(err))
	}
}
