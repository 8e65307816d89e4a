// Package history keeps a ledger of file transfers in a bbolt database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	// ErrRecordNotFound is returned when a record is not in the ledger.
	ErrRecordNotFound = errors.New("history record not found")
)

var (
	transfersBucket = []byte("transfers")
)

// State is the outcome of a transfer.
type State string

const (
	StateCompleted State = "Completed"
	StateSkipped   State = "Skipped"
	StateFailed    State = "Failed"
)

// Record is one transfer in the ledger.
type Record struct {
	ID         string        `json:"id"`
	Direction  string        `json:"direction"`
	Device     string        `json:"device"`
	LocalPath  string        `json:"local_path"`
	RemotePath string        `json:"remote_path"`
	Protocol   string        `json:"protocol"`
	State      State         `json:"state"`
	Bytes      int64         `json:"bytes"`
	MD5        string        `json:"md5,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Store records transfers.
type Store interface {
	Save(rec *Record) error
	Get(id string) (*Record, error)
	List(limit int) ([]Record, error)
	Close() error
}

// BoltStore is a Store implementation backed by bbolt. Record IDs are
// UUIDv7 so key order is time order.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(transfersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create transfers bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// NewID returns a new time-ordered record ID.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Save stores rec, assigning an ID and start time when missing.
func (s *BoltStore) Save(rec *Record) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(transfersBucket)

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}

		if err := b.Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("put record: %w", err)
		}
		return nil
	})
}

// Get retrieves a record by ID.
func (s *BoltStore) Get(id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(transfersBucket).Get([]byte(id))
		if data == nil {
			return ErrRecordNotFound
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns up to limit records, newest first. A limit of 0 or less
// returns every record.
func (s *BoltStore) List(limit int) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(transfersBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal record %s: %w", k, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
