package client

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// Upload is a file held in memory so the multipart body can be rebuilt for a
// replayed request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadFromFile reads path and sniffs its content type.
func UploadFromFile(path string) (*Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &Upload{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	name   string
	upload *Upload
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartRequest encodes the fields and files into a request body.
func multipartRequest(method, path string, fields []formField, files []formFile) (Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return Request{}, fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}

	for _, f := range files {
		if f.upload == nil {
			continue
		}
		contentType := f.upload.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		filename := f.upload.Filename
		if filename == "" {
			filename = f.name
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.name), quoteEscaper.Replace(filename)))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return Request{}, fmt.Errorf("failed to create form file %s: %w", f.name, err)
		}
		if _, err := part.Write(f.upload.Data); err != nil {
			return Request{}, fmt.Errorf("failed to write form file %s: %w", f.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return Request{}, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return Request{
		Method:      method,
		Path:        path,
		Body:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}, nil
}
