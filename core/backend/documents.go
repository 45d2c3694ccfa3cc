package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Document is a study source the backend knows about.
type Document struct {
	ID             string `json:"document_id"`
	Filename       string `json:"filename"`
	Source         string `json:"source"`
	ContentPreview string `json:"content_preview"`
}

// DocumentChunks is the full stored content of one document.
type DocumentChunks struct {
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

// UploadResult reports what the backend extracted from an uploaded PDF.
type UploadResult struct {
	Text   string   `json:"text"`
	Chunks []string `json:"chunks"`
}

// ListDocuments returns every document available for a study session.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	ctx, span := tracer.Start(ctx, "list documents")
	defer span.End()

	resp, err := c.http.R().SetContext(ctx).Get("/api/documents")
	if err != nil {
		err = fmt.Errorf("failed to reach backend: %w", err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode()))
	if resp.StatusCode() != http.StatusOK {
		err := apiError("list documents", resp)
		span.RecordError(err)
		return nil, err
	}

	var payload struct {
		Documents []Document `json:"documents"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		err = fmt.Errorf("failed to parse documents response: %w", err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.document_count", len(payload.Documents)))
	return payload.Documents, nil
}

// DocumentChunks returns the stored content of one document.
func (c *Client) DocumentChunks(ctx context.Context, documentID string) (*DocumentChunks, error) {
	ctx, span := tracer.Start(ctx, "fetch document chunks")
	defer span.End()
	span.SetAttributes(attribute.String("request.document_id", documentID))

	resp, err := c.http.R().SetContext(ctx).Get("/api/documents/" + documentID + "/chunks")
	if err != nil {
		err = fmt.Errorf("failed to reach backend: %w", err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode()))
	if resp.StatusCode() == http.StatusNotFound {
		span.RecordError(ErrDocumentNotFound)
		return nil, ErrDocumentNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		err := apiError("fetch document chunks", resp)
		span.RecordError(err)
		return nil, err
	}

	var chunks DocumentChunks
	if err := json.Unmarshal(resp.Body(), &chunks); err != nil {
		err = fmt.Errorf("failed to parse document chunks response: %w", err)
		span.RecordError(err)
		return nil, err
	}

	return &chunks, nil
}

// DeleteDocument removes a document and returns the backend's confirmation
// message.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) (string, error) {
	ctx, span := tracer.Start(ctx, "delete document")
	defer span.End()
	span.SetAttributes(attribute.String("request.document_id", documentID))

	resp, err := c.http.R().SetContext(ctx).Delete("/api/documents/" + documentID)
	if err != nil {
		err = fmt.Errorf("failed to reach backend: %w", err)
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode()))
	if resp.StatusCode() == http.StatusNotFound {
		span.RecordError(ErrDocumentNotFound)
		return "", ErrDocumentNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		err := apiError("delete document", resp)
		span.RecordError(err)
		return "", err
	}

	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		err = fmt.Errorf("failed to parse delete response: %w", err)
		span.RecordError(err)
		return "", err
	}
	if !payload.Success {
		err := fmt.Errorf("%w: delete document: %s", ErrBackend, payload.Message)
		span.RecordError(err)
		return "", err
	}

	return payload.Message, nil
}

type UploadOptions struct {
	// ProgressCallback reports upload progress as the file is read. Total is
	// the file size in bytes.
	ProgressCallback func(sent, total int64)
}

type UploadOption func(*UploadOptions)

func WithProgressCallback(callback func(sent, total int64)) UploadOption {
	return func(o *UploadOptions) { o.ProgressCallback = callback }
}

// UploadDocument sends a PDF to the backend for chunking and embedding. The
// file is validated locally before any bytes go over the wire.
func (c *Client) UploadDocument(ctx context.Context, path string, opts ...UploadOption) (*UploadResult, error) {
	options := &UploadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	ctx, span := tracer.Start(ctx, "upload document")
	defer span.End()
	span.SetAttributes(attribute.String("request.file", filepath.Base(path)))

	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open file: %w", err)
		span.RecordError(err)
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		err = fmt.Errorf("failed to stat file: %w", err)
		span.RecordError(err)
		return nil, err
	}

	if err := validatePDF(path, file); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if info.Size() > maxUploadSize {
		span.RecordError(ErrFileTooLarge)
		return nil, ErrFileTooLarge
	}

	var reader io.Reader = file
	if options.ProgressCallback != nil {
		reader = &progressReader{
			reader:   file,
			total:    info.Size(),
			callback: options.ProgressCallback,
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(path), reader).
		Post("/api/upload-pdf")
	if err != nil {
		err = fmt.Errorf("failed to reach backend: %w", err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode()))
	if resp.StatusCode() != http.StatusOK {
		err := apiError("upload document", resp)
		span.RecordError(err)
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		err = fmt.Errorf("failed to parse upload response: %w", err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.chunk_count", len(result.Chunks)))
	return &result, nil
}

var pdfMagic = []byte("%PDF-")

// maxUploadSize caps how large a PDF the client will send.
const maxUploadSize int64 = 50 << 20

// validatePDF checks the extension and the leading magic bytes, then rewinds
// the file for the actual upload.
func validatePDF(path string, file *os.File) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ErrNotPDF
	}

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(file, header); err != nil {
		return ErrNotPDF
	}
	if !bytes.Equal(header, pdfMagic) {
		return ErrNotPDF
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind file: %w", err)
	}
	return nil
}

type progressReader struct {
	reader   io.Reader
	total    int64
	sent     int64
	callback func(sent, total int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.callback(r.sent, r.total)
	}
	return n, err
}
