package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	transactionBucketName = "transactions"
	itemBucketName        = "receipt_items"
	scanBucketName        = "scans"
)

// ErrNotFound is returned when a transaction, scan or file does not exist
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveTransaction saves a transaction and replaces its items
	SaveTransaction(transaction *Transaction, items []*ReceiptItem) error

	// GetTransaction retrieves a transaction by ID
	GetTransaction(id string) (*Transaction, error)

	// ListTransactions returns all transactions
	ListTransactions() ([]*Transaction, error)

	// ListItems returns the items of a transaction
	ListItems(transactionID string) ([]*ReceiptItem, error)

	// DeleteTransaction removes a transaction and its items
	DeleteTransaction(id string) error

	SaveScan(scan *Scan) error
	GetScan(id string) (*Scan, error)
	DeleteScan(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{transactionBucketName, itemBucketName, scanBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// itemKey groups items under their transaction so they can be prefix scanned
func itemKey(transactionID, itemID string) []byte {
	return []byte(transactionID + "/" + itemID)
}

func itemPrefix(transactionID string) []byte {
	return []byte(transactionID + "/")
}

// SaveTransaction saves a transaction and replaces its items in one update
func (b *BoltDB) SaveTransaction(transaction *Transaction, items []*ReceiptItem) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(transaction)
		if err != nil {
			return fmt.Errorf("marshaling transaction: %w", err)
		}
		if err := tx.Bucket([]byte(transactionBucketName)).Put([]byte(transaction.ID), data); err != nil {
			return err
		}

		bucket := tx.Bucket([]byte(itemBucketName))
		if err := deleteItems(bucket, transaction.ID); err != nil {
			return err
		}
		for _, item := range items {
			item.TransactionID = transaction.ID
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("marshaling item: %w", err)
			}
			if err := bucket.Put(itemKey(transaction.ID, item.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTransaction retrieves a transaction by ID
func (b *BoltDB) GetTransaction(id string) (*Transaction, error) {
	var transaction *Transaction
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(transactionBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &transaction)
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// ListTransactions returns all transactions in key order
func (b *BoltDB) ListTransactions() ([]*Transaction, error) {
	transactions := make([]*Transaction, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(transactionBucketName)).ForEach(func(k, v []byte) error {
			var transaction Transaction
			if err := json.Unmarshal(v, &transaction); err != nil {
				return fmt.Errorf("unmarshaling transaction: %w", err)
			}
			transactions = append(transactions, &transaction)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// ListItems returns the items of a transaction
func (b *BoltDB) ListItems(transactionID string) ([]*ReceiptItem, error) {
	items := make([]*ReceiptItem, 0)
	prefix := itemPrefix(transactionID)
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(itemBucketName)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var item ReceiptItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling item: %w", err)
			}
			items = append(items, &item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteTransaction removes a transaction and its items
func (b *BoltDB) DeleteTransaction(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteItems(tx.Bucket([]byte(itemBucketName)), id); err != nil {
			return err
		}
		return tx.Bucket([]byte(transactionBucketName)).Delete([]byte(id))
	})
}

func deleteItems(bucket *bbolt.Bucket, transactionID string) error {
	prefix := itemPrefix(transactionID)
	var keys [][]byte
	c := bucket.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := bucket.Delete(k); err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
	}
	return nil
}

// SaveScan saves a scan draft
func (b *BoltDB) SaveScan(scan *Scan) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(scan)
		if err != nil {
			return fmt.Errorf("marshaling scan: %w", err)
		}
		return tx.Bucket([]byte(scanBucketName)).Put([]byte(scan.ID), data)
	})
}

// GetScan retrieves a scan draft by ID
func (b *BoltDB) GetScan(id string) (*Scan, error) {
	var scan *Scan
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(scanBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("scan %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &scan)
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// DeleteScan removes a scan draft
func (b *BoltDB) DeleteScan(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(scanBucketName)).Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
