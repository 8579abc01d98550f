package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	appcatalog "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/shopspring/decimal"
)

// Categories

type categoryRequest struct {
	ID   json.RawMessage `json:"id"`
	Name *string         `json:"name"`
	Slug *string         `json:"slug"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	page, err := pageNumber(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.svc.Categories.List(r.Context(), page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(res.Categories))
	for i := range res.Categories {
		out = append(out, toCategory(&res.Categories[i]))
	}
	writeJSON(w, http.StatusOK, newPage(r, page, res.Total, out))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	c, err := s.svc.Categories.Create(r.Context(), appcatalog.CategoryInput{
		Name: deref(req.Name),
		Slug: deref(req.Slug),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategory(c))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	c, err := s.svc.Categories.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(c))
}

// handleUpdateCategory serves both PUT (full) and PATCH (partial).
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	c, err := s.svc.Categories.Update(r.Context(), appcatalog.CategoryPatch{
		ID:      id,
		Partial: r.Method == http.MethodPatch,
		Name:    req.Name,
		Slug:    req.Slug,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Products

// productRequest is the JSON form of a product write. Read-only fields are
// accepted and ignored; files only arrive through multipart bodies.
type productRequest struct {
	ID              json.RawMessage  `json:"id"`
	Category        *uint            `json:"category"`
	CategoryDetails json.RawMessage  `json:"category_details"`
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	Stock           *int             `json:"stock"`
	Image           json.RawMessage  `json:"image"`
	ExecutableFile  json.RawMessage  `json:"executable_file"`
	CreatedAt       json.RawMessage  `json:"created_at"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageNumber(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := s.svc.Products.List(r.Context(), appcatalog.ListProductsInput{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
		Page:     page,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(res.Products))
	for i := range res.Products {
		out = append(out, s.toProduct(&res.Products[i]))
	}
	writeJSON(w, http.StatusOK, newPage(r, page, res.Total, out))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	cmd, err := s.readProduct(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	p, err := s.svc.Products.Create(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toProduct(p))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	p, err := s.svc.Products.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toProduct(p))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	cmd, err := s.readProduct(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.Partial = r.Method == http.MethodPatch
	p, err := s.svc.Products.Update(r.Context(), id, cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toProduct(p))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := s.svc.Products.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readProduct accepts either a JSON body or multipart/form-data with
// optional image and executable_file parts.
func (s *Server) readProduct(r *http.Request) (appcatalog.ProductInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readProductForm(r)
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		return appcatalog.ProductInput{}, err
	}
	return appcatalog.ProductInput{
		CategoryID:  req.Category,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}, nil
}

func readProductForm(r *http.Request) (appcatalog.ProductInput, error) {
	var cmd appcatalog.ProductInput
	r.Body = http.MaxBytesReader(nil, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return cmd, validation.New("non_field_errors", "Request body is too large.")
		}
		return cmd, validation.New("non_field_errors", msgMalformed)
	}
	form := r.MultipartForm
	errs := validation.Errors{}

	if v, ok := formValue(form, "category"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs.Add("category", "Incorrect type. Expected pk value.")
		} else {
			id := uint(n)
			cmd.CategoryID = &id
		}
	}
	if v, ok := formValue(form, "name"); ok {
		cmd.Name = &v
	}
	if v, ok := formValue(form, "description"); ok {
		cmd.Description = &v
	}
	if v, ok := formValue(form, "price"); ok {
		d, err := decimal.NewFromString(v)
		if err != nil {
			errs.Add("price", "A valid number is required.")
		} else {
			cmd.Price = &d
		}
	}
	if v, ok := formValue(form, "stock"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs.Add("stock", "A valid integer is required.")
		} else {
			cmd.Stock = &n
		}
	}

	var err error
	if cmd.Image, err = formFile(form, "image"); err != nil {
		errs.Add("image", "The submitted data was not a file.")
	}
	if cmd.Executable, err = formFile(form, "executable_file"); err != nil {
		errs.Add("executable_file", "The submitted data was not a file.")
	}
	if len(errs) > 0 {
		return cmd, errs
	}
	return cmd, nil
}

func formValue(form *multipart.Form, key string) (string, bool) {
	vs, ok := form.Value[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}

// formFile reads one uploaded part. The content type is sniffed from the
// bytes; the client-declared header is ignored.
func formFile(form *multipart.Form, key string) (*appcatalog.Upload, error) {
	fhs := form.File[key]
	if len(fhs) == 0 {
		return nil, nil
	}
	f, err := fhs[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}
	return &appcatalog.Upload{
		Filename:    fhs[0].Filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
