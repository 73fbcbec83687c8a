package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Image is a downloaded image.
type Image struct {
	ContentType string
	Data        []byte
}

type ImageClient struct {
	c *Client
}

func NewImageClient(c *Client) *ImageClient {
	return &ImageClient{c: c}
}

// ProductImageURL is the direct link to a product's image.
func (i *ImageClient) ProductImageURL(productID int64) string {
	return fmt.Sprintf("%s/product/v1/product-image/%d", i.c.serverURL, productID)
}

// UploadProductImage replaces a product's image and returns the server's
// acknowledgement text.
func (i *ImageClient) UploadProductImage(ctx context.Context, productID int64, file *Upload) (string, error) {
	return i.upload(ctx, fmt.Sprintf("/product/v1/product-image/upload/%d", productID), file, "Failed to upload product image")
}

func (i *ImageClient) ProductImage(ctx context.Context, productID int64) (*Image, error) {
	return i.download(ctx, fmt.Sprintf("/product/v1/product-image/%d", productID), "No product image found")
}

// UploadUserImage replaces a user's profile picture.
func (i *ImageClient) UploadUserImage(ctx context.Context, userID int64, file *Upload) (string, error) {
	return i.upload(ctx, fmt.Sprintf("/auth/api/user-image/upload/%d", userID), file, "Failed to upload profile image")
}

func (i *ImageClient) UserImage(ctx context.Context, userID int64) (*Image, error) {
	return i.download(ctx, fmt.Sprintf("/auth/api/user-image/%d", userID), "No profile image found")
}

func (i *ImageClient) upload(ctx context.Context, path string, file *Upload, fallback string) (string, error) {
	if file == nil || len(file.Data) == 0 {
		return "", &ValidationError{Field: "file", Message: "An image file is required"}
	}

	req, err := multipartRequest(http.MethodPost, path, nil, []formFile{{name: "file", upload: file}})
	if err != nil {
		return "", err
	}

	body, _, err := i.c.callRaw(ctx, req, fallback)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (i *ImageClient) download(ctx context.Context, path, fallback string) (*Image, error) {
	req := Request{
		Method: http.MethodGet,
		Path:   path,
		Header: http.Header{"Accept": {"image/*"}},
	}

	data, contentType, err := i.c.callRaw(ctx, req, fallback)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Image{ContentType: contentType, Data: data}, nil
}
