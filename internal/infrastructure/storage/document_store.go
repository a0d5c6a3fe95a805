package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"go.uber.org/zap"
)

// DocumentStore implements port.DocumentStore on top of a FileStorage.
// Locators are derived from the invoice id only, so renumbering or status
// changes never orphan a document.
type DocumentStore struct {
	files  port.FileStorage
	logger *zap.Logger
}

// NewDocumentStore creates a document store
func NewDocumentStore(files port.FileStorage, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		files:  files,
		logger: logger,
	}
}

// Locator returns the storage key of an invoice document
func Locator(invoiceID int64, extension string) string {
	return "invoices/" + strconv.FormatInt(invoiceID, 10) + "/document." + extension
}

// Store saves the document and returns its locator
func (s *DocumentStore) Store(ctx context.Context, invoiceID int64, doc *entity.Document) (string, error) {
	if invoiceID <= 0 {
		return "", fmt.Errorf("invalid invoice id %d", invoiceID)
	}
	if doc == nil || doc.Extension == "" || strings.ContainsAny(doc.Extension, `/\.`) {
		return "", fmt.Errorf("invalid document for invoice %d", invoiceID)
	}

	locator := Locator(invoiceID, doc.Extension)
	if err := s.files.Save(ctx, locator, doc.Content); err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}

	s.logger.Info("Invoice document stored",
		zap.Int64("invoice_id", invoiceID),
		zap.String("locator", locator),
		zap.Int("size", len(doc.Content)))
	return locator, nil
}

// Retrieve returns the stored bytes; errs.ErrDocumentNotFound when missing
func (s *DocumentStore) Retrieve(ctx context.Context, locator string) ([]byte, error) {
	content, err := s.files.Read(ctx, locator)
	if errors.Is(err, port.ErrFileNotFound) {
		return nil, errs.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve document: %w", err)
	}
	return content, nil
}

// Remove deletes the document; removing a missing document succeeds
func (s *DocumentStore) Remove(ctx context.Context, locator string) error {
	if err := s.files.Delete(ctx, locator); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}

var _ port.DocumentStore = (*DocumentStore)(nil)
