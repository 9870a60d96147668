package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/budget-receipts/internal/extract"
	"github.com/zombor/budget-receipts/internal/scanning"
)

// ErrInvalidReceipt is returned when a receipt cannot be saved as a transaction
var ErrInvalidReceipt = errors.New("invalid receipt")

// SourceManual marks transactions saved without a scan
const SourceManual = "manual"

// IDGenerator generates unique IDs for transactions, items and scans
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Config tunes how receipts are scanned
type Config struct {
	// Source names the primary scanner on saved scans
	Source string
	// Fallback is tried when the primary scanner fails or is not confident enough
	Fallback       scanning.Scanner
	FallbackSource string
	MinConfidence  int
	Extractor      *extract.Extractor
}

// Service handles receipt operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	cfg         Config
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage, cfg Config) *Service {
	return NewServiceWithDeps(db, scanner, storage, cfg, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, cfg Config, idGen IDGenerator, timeSrc TimeSource) *Service {
	if cfg.Extractor == nil {
		cfg.Extractor = extract.DefaultExtractor
	}
	if cfg.Source == "" {
		cfg.Source = "primary"
	}
	if cfg.FallbackSource == "" {
		cfg.FallbackSource = "fallback"
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		cfg:         cfg,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameSpecialChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	filenameSpaces       = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = filenameSpecialChars.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// phones generate very long names
	if runes := []rune(base); len(runes) > 50 {
		base = string(runes[:50])
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ScanReceipt stores a receipt image, scans it and saves the result as a
// draft for the user to review
func (s *Service) ScanReceipt(ctx context.Context, filename string, data []byte, contentType string, progress scanning.ProgressFunc) (*Scan, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(ctx, fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data, contentType)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	receiptData, source, err := s.scan(ctx, data, contentType, progress)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.discardFile(ctx, savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	scan := &Scan{
		ID:          id,
		ReceiptPath: savedPath,
		ContentType: contentType,
		Source:      source,
		Data:        *receiptData,
		CreatedAt:   now,
	}

	if err := s.db.SaveScan(scan); err != nil {
		s.discardFile(ctx, savedPath)
		return nil, fmt.Errorf("saving scan to database: %w", err)
	}

	return scan, nil
}

// scan runs the primary scanner and, when configured, the fallback
func (s *Service) scan(ctx context.Context, data []byte, contentType string, progress scanning.ProgressFunc) (*extract.ReceiptData, string, error) {
	primary, err := s.scanner.ScanReceipt(ctx, data, contentType, progress)
	if s.cfg.Fallback == nil {
		return primary, s.cfg.Source, err
	}
	if err == nil && primary.Confidence >= s.cfg.MinConfidence {
		return primary, s.cfg.Source, nil
	}

	if err != nil {
		slog.Warn("Primary scanner failed, trying fallback", "source", s.cfg.Source, "error", err)
	} else {
		slog.Info("Low scan confidence, trying fallback",
			"source", s.cfg.Source,
			"confidence", primary.Confidence,
			"min_confidence", s.cfg.MinConfidence,
		)
	}

	secondary, fallbackErr := s.cfg.Fallback.ScanReceipt(ctx, data, contentType, progress)
	if fallbackErr == nil {
		return secondary, s.cfg.FallbackSource, nil
	}
	if err != nil {
		return nil, "", errors.Join(err, fallbackErr)
	}

	slog.Warn("Fallback scanner failed, keeping primary result", "source", s.cfg.FallbackSource, "error", fallbackErr)
	return primary, s.cfg.Source, nil
}

// ExtractText runs the extractors over already recognized text
func (s *Service) ExtractText(text string) *extract.ReceiptData {
	return s.cfg.Extractor.Extract(text, -1)
}

// SaveReceipt turns reviewed receipt data into a transaction with its items.
// scanID links the scanned image and may be empty for manual entries.
func (s *Service) SaveReceipt(ctx context.Context, scanID string, data extract.ReceiptData) (*Transaction, []*ReceiptItem, error) {
	var scan *Scan
	if scanID != "" {
		var err error
		scan, err = s.db.GetScan(scanID)
		if err != nil {
			return nil, nil, fmt.Errorf("getting scan: %w", err)
		}
	}

	printedDate := data.Date
	s.cfg.Extractor.Sanitize(&data)
	if data.Amount <= 0 {
		return nil, nil, fmt.Errorf("%w: amount is required", ErrInvalidReceipt)
	}

	now := s.timeSource.Now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if data.Date != nil {
		if d, err := time.Parse("2006-01-02", *data.Date); err == nil {
			date = d
		}
	} else if printedDate != nil && *printedDate != "" {
		slog.Warn("Invalid receipt date, using today", "date", *printedDate)
	}

	transaction := &Transaction{
		ID:          s.idGenerator.Generate(),
		Type:        TransactionTypeExpense,
		Amount:      toMinorUnits(data.Amount),
		Currency:    data.Currency,
		Category:    data.Category,
		Description: data.Description,
		Date:        date,
		Confidence:  data.Confidence,
		Source:      SourceManual,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if scan != nil {
		transaction.ReceiptPath = scan.ReceiptPath
		transaction.ContentType = scan.ContentType
		transaction.Source = scan.Source
	}

	items := make([]*ReceiptItem, 0, len(data.Items))
	for _, item := range data.Items {
		saved := &ReceiptItem{
			ID:            s.idGenerator.Generate(),
			TransactionID: transaction.ID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			TotalPrice:    toMinorUnits(item.TotalPrice),
		}
		if item.UnitPrice != nil {
			unit := toMinorUnits(*item.UnitPrice)
			saved.UnitPrice = &unit
		}
		if item.Category != nil {
			saved.Category = *item.Category
		}
		if item.Brand != nil {
			saved.Brand = *item.Brand
		}
		items = append(items, saved)
	}

	if err := s.db.SaveTransaction(transaction, items); err != nil {
		return nil, nil, fmt.Errorf("saving transaction to database: %w", err)
	}

	if scan != nil {
		if err := s.db.DeleteScan(scan.ID); err != nil {
			slog.Warn("Failed to delete saved scan", "scan_id", scan.ID, "error", err)
		}
	}

	return transaction, items, nil
}

// GetTransaction retrieves a transaction and its items
func (s *Service) GetTransaction(id string) (*Transaction, []*ReceiptItem, error) {
	transaction, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting transaction: %w", err)
	}
	items, err := s.db.ListItems(id)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items: %w", err)
	}
	return transaction, items, nil
}

// ListTransactions returns all transactions, newest first
func (s *Service) ListTransactions() ([]*Transaction, error) {
	transactions, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	slices.SortStableFunc(transactions, func(a, b *Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return transactions, nil
}

// DeleteTransaction removes a transaction, its items and its receipt file
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	transaction, err := s.db.GetTransaction(id)
	if err != nil {
		return fmt.Errorf("getting transaction for deletion: %w", err)
	}

	if err := s.db.DeleteTransaction(id); err != nil {
		return fmt.Errorf("deleting transaction from database: %w", err)
	}

	// a transaction must never point at a deleted file
	if transaction.ReceiptPath != "" {
		s.discardFile(ctx, transaction.ReceiptPath)
	}
	return nil
}

// GetReceiptFile retrieves the receipt image of a transaction
func (s *Service) GetReceiptFile(ctx context.Context, id string) ([]byte, string, error) {
	transaction, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting transaction: %w", err)
	}
	if transaction.ReceiptPath == "" {
		return nil, "", fmt.Errorf("transaction %s has no receipt: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(ctx, transaction.ReceiptPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, transaction.ContentType, nil
}

func (s *Service) discardFile(ctx context.Context, path string) {
	if err := s.storage.Delete(ctx, path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// toMinorUnits converts an amount to kuruş/cents without float truncation
func toMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}
