package productmanagement

import (
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tigerroll/storefront/pkg/web/server"
	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
)

type updateProductRequest struct {
	ProductUpdate
	Version int64 `json:"version"`
}

type adjustStockRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// Handlers serves the catalog over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates Handlers for service.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// NewRoutes mounts the catalog under /product_management.
func NewRoutes(h *Handlers) server.AppRoutes {
	return server.AppRoutes{Label: Name, Mount: h.Mount}
}

// Mount registers the catalog routes on r.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getProduct)
			r.Put("/", h.updateProduct)
			r.Delete("/", h.deleteProduct)
			r.Post("/stock", h.adjustStock)
			r.Get("/movements", h.listMovements)
		})
	})
	r.Post("/exports", h.exportCatalog)
}

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, listResponse[Category]{Items: categories})
}

func (h *Handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var in CategoryInput
	if err := server.DecodeJSON(r, &in); err != nil {
		server.WriteError(w, r, err)
		return
	}
	category, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, category)
}

// queryInt reads a non-negative integer query parameter, 0 when absent.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, exception.NewAppErrorf("productmanagement.Handlers", exception.ErrInvalidArgument, "query parameter '%s' must be a non-negative integer", key)
	}
	return n, nil
}

func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	page, err := h.service.ListProducts(r.Context(), ProductFilter{
		CategoryID: r.URL.Query().Get("category_id"),
		ActiveOnly: activeOnly,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, page)
}

func (h *Handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := server.DecodeJSON(r, &in); err != nil {
		server.WriteError(w, r, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	w.Header().Set("Location", path.Join(r.URL.Path, product.ID))
	server.WriteJSON(w, http.StatusCreated, product)
}

func (h *Handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, product)
}

func (h *Handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in updateProductRequest
	if err := server.DecodeJSON(r, &in); err != nil {
		server.WriteError(w, r, err)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in.Version, in.ProductUpdate)
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, product)
}

func (h *Handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		server.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) adjustStock(w http.ResponseWriter, r *http.Request) {
	var in adjustStockRequest
	if err := server.DecodeJSON(r, &in); err != nil {
		server.WriteError(w, r, err)
		return
	}
	product, err := h.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), in.Delta, in.Reason)
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, product)
}

func (h *Handlers) listMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.service.ListMovements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, listResponse[StockMovement]{Items: movements})
}

func (h *Handlers) exportCatalog(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ExportCatalog(r.Context())
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusAccepted, result)
}
