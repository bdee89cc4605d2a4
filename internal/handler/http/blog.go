package http

import (
	"log/slog"
	"net/http"

	"github.com/Kodar11/Blog/internal/auth"
	"github.com/Kodar11/Blog/internal/service"
	"github.com/Kodar11/Blog/pkg/httputil"
	"github.com/Kodar11/Blog/pkg/pagination"
)

// BlogHandler handles HTTP requests for blog endpoints.
type BlogHandler struct {
	service *service.BlogService
	logger  *slog.Logger
}

// NewBlogHandler creates a new blog HTTP handler.
func NewBlogHandler(svc *service.BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{service: svc, logger: logger}
}

// CreateBlogRequest is the JSON request body for POST /blog/write.
type CreateBlogRequest struct {
	Title   string `json:"blog_title"`
	Content string `json:"blog_content"`
}

// Write handles POST /blog/write
func (h *BlogHandler) Write(w http.ResponseWriter, r *http.Request) {
	var req CreateBlogRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	blog, err := h.service.Create(r.Context(), identity, service.CreateBlogInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.Write(w, http.StatusCreated, blog, "Blog created successfully")
}

// Read handles GET /blog/read. Without page or limit it returns the full
// list; with either it returns a single page.
func (h *BlogHandler) Read(w http.ResponseWriter, r *http.Request) {
	params, paged := pagination.FromRequest(r)
	if !paged {
		blogs, err := h.service.List(r.Context())
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.Write(w, http.StatusOK, blogs, "Fetching blog successfully")
		return
	}

	page, err := h.service.ListPage(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.Write(w, http.StatusOK, page, "Fetching blog successfully")
}
