package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultListLimit is how many products List returns when no limit is given.
const DefaultListLimit = 5

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder accepts "asc" or "desc", case-insensitively.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", &ValidationError{Field: "order", Message: fmt.Sprintf("invalid sort order %q (want asc or desc)", s)}
}

// Category is sent as {"id": n}. Some backend responses inline just the
// category name, which is also accepted.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

func (c *Category) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Name)
	}
	type plain Category
	return json.Unmarshal(data, (*plain)(c))
}

func (c *Category) String() string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	if c.ID != 0 {
		return strconv.FormatInt(c.ID, 10)
	}
	return ""
}

type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Quantity     int       `json:"quantity"`
	SKU          string    `json:"sku,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Region       string    `json:"region,omitempty"`
	Category     *Category `json:"category,omitempty"`
}

// InStock reports whether any quantity is left.
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// ProductFields are the editable fields of a product.
type ProductFields struct {
	Name         string
	Description  string
	Price        float64
	Quantity     int
	Manufacturer string
	Region       string
	CategoryID   int64
}

// Validate runs the create/edit form's required-field checks.
func (f ProductFields) Validate() error {
	if strings.TrimSpace(f.Description) == "" {
		return &ValidationError{Field: "description", Message: "Description is required"}
	}
	if f.Price < 0 {
		return &ValidationError{Field: "price", Message: "Price cannot be negative"}
	}
	if f.Quantity < 0 {
		return &ValidationError{Field: "quantity", Message: "Quantity cannot be negative"}
	}
	return nil
}

type productPayload struct {
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Quantity     int       `json:"quantity"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Region       string    `json:"region,omitempty"`
	Category     *Category `json:"category,omitempty"`
}

func (f ProductFields) payload() productPayload {
	p := productPayload{
		Name:         f.Name,
		Description:  f.Description,
		Price:        f.Price,
		Quantity:     f.Quantity,
		Manufacturer: f.Manufacturer,
		Region:       f.Region,
	}
	if f.CategoryID != 0 {
		p.Category = &Category{ID: f.CategoryID}
	}
	return p
}

type ProductClient struct {
	c *Client
}

func NewProductClient(c *Client) *ProductClient {
	return &ProductClient{c: c}
}

// List returns up to limit products; limit <= 0 means DefaultListLimit.
func (p *ProductClient) List(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return p.list(ctx, "/product/v1/All", url.Values{"limit": {strconv.Itoa(limit)}}, "Failed to fetch products")
}

func (p *ProductClient) SortByPrice(ctx context.Context, order SortOrder) ([]Product, error) {
	if _, err := ParseSortOrder(string(order)); err != nil {
		return nil, err
	}
	return p.list(ctx, "/product/v1/orderPrice", url.Values{"order": {string(order)}}, "Failed to fetch products")
}

func (p *ProductClient) SortByName(ctx context.Context, order SortOrder) ([]Product, error) {
	if _, err := ParseSortOrder(string(order)); err != nil {
		return nil, err
	}
	return p.list(ctx, "/product/v1/orderName", url.Values{"order": {string(order)}}, "Failed to fetch products")
}

// Search matches products by description.
func (p *ProductClient) Search(ctx context.Context, description string) ([]Product, error) {
	return p.list(ctx, "/product/v1/serch", url.Values{"description": {description}}, "Failed to search products")
}

func (p *ProductClient) list(ctx context.Context, path string, query url.Values, fallback string) ([]Product, error) {
	var products []Product
	req := Request{Method: http.MethodGet, Path: path, Query: query}
	if err := p.c.call(ctx, req, fallback, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Get fetches one product. A missing product matches ErrNotFound.
func (p *ProductClient) Get(ctx context.Context, id int64) (*Product, error) {
	var product Product
	req := Request{Method: http.MethodGet, Path: fmt.Sprintf("/product/v1/get/%d", id)}
	if err := p.c.call(ctx, req, "Product not found", &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Create sends a multipart form with the product as a JSON "product" field
// and, when image is non-nil, the file as "image".
func (p *ProductClient) Create(ctx context.Context, fields ProductFields, image *Upload) (*Product, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(fields.payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product: %w", err)
	}

	var files []formFile
	if image != nil {
		files = append(files, formFile{name: "image", upload: image})
	}

	req, err := multipartRequest(http.MethodPost, "/product/v1/create",
		[]formField{{name: "product", value: string(payload)}}, files)
	if err != nil {
		return nil, err
	}

	var product Product
	if err := p.c.call(ctx, req, "Failed to create product. Please try again.", &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (p *ProductClient) Update(ctx context.Context, id int64, fields ProductFields) (*Product, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	req, err := NewJSONRequest(http.MethodPut, fmt.Sprintf("/product/v1/update/%d", id), fields.payload())
	if err != nil {
		return nil, err
	}

	var product Product
	if err := p.c.call(ctx, req, "Failed to update product. Please try again.", &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (p *ProductClient) Delete(ctx context.Context, id int64) error {
	req := Request{Method: http.MethodDelete, Path: fmt.Sprintf("/product/v1/delete/%d", id)}
	return p.c.call(ctx, req, "Failed to delete product. Please try again.", nil)
}
