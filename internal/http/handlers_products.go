package http

import (
	"net/http"
	"strconv"

	"kasir/internal/services"
)

// handleListProducts returns the in-stock catalogue, or every product with
// ?all=true.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	list := s.svc.Products.ListInStock
	if all {
		list = s.svc.Products.ListAll
	}
	products, err := list(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductViews(products))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductView(p))
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InStock     *int64 `json:"in_stock"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
}

func (req productRequest) input() services.ProductInput {
	return services.ProductInput{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		InStock:     req.InStock,
		Category:    sanitizeInput(req.Category),
		Price:       req.Price,
		Image:       sanitizeInput(req.Image),
	}
}

// decodeProduct resolves the caller and body shared by create and update.
func decodeProduct(w http.ResponseWriter, r *http.Request) (string, services.ProductInput, bool) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return "", services.ProductInput{}, false
	}
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return "", services.ProductInput{}, false
	}
	return uid, req.input(), true
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	uid, in, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	p, err := s.svc.Products.Create(r.Context(), uid, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProductView(p))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	uid, in, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	p, err := s.svc.Products.Update(r.Context(), uid, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductView(p))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Products.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
