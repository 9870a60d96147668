package receipt

import (
	"time"

	"github.com/zombor/budget-receipts/internal/extract"
)

// TransactionTypeExpense is the only transaction type produced from receipts
const TransactionTypeExpense = "expense"

// Transaction represents a saved expense, optionally backed by a receipt image
type Transaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"` // Amount in minor units (kuruş, cents)
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	ReceiptPath string    `json:"receipt_path,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Confidence  int       `json:"confidence"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReceiptItem is a persisted line item of a transaction
type ReceiptItem struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	UnitPrice     *int64 `json:"unit_price,omitempty"` // minor units
	TotalPrice    int64  `json:"total_price"`          // minor units
	Category      string `json:"category,omitempty"`
	Brand         string `json:"brand,omitempty"`
}

// Scan is an unsaved draft produced by scanning a receipt. The user reviews
// and edits Data before saving it as a Transaction.
type Scan struct {
	ID          string              `json:"id"`
	ReceiptPath string              `json:"receipt_path"`
	ContentType string              `json:"content_type"`
	Source      string              `json:"source"`
	Data        extract.ReceiptData `json:"data"`
	CreatedAt   time.Time           `json:"created_at"`
}
