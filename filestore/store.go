// Package filestore keeps the catalog and the ledger in one JSON document so a
// spin, its win and the stock it consumed are written by a single rename.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Ashenafi-pixel/trustcade-rewards/catalog"
	"github.com/Ashenafi-pixel/trustcade-rewards/ledger"
)

const fileName = "trustcade.json"

type document struct {
	Prizes []catalog.Prize     `json:"prizes"`
	Spins  []ledger.SpinRecord `json:"spins"`
	Wins   []ledger.WinRecord  `json:"wins"`
}

// Store persists to <dataDir>/trustcade.json. It implements both catalog.Store
// and ledger.Store.
type Store struct {
	mu      sync.Mutex
	dataDir string
}

var (
	_ catalog.Store = (*Store)(nil)
	_ ledger.Store  = (*Store)(nil)
)

func New(dataDir string) *Store {
	if dataDir == "" {
		dataDir = "data"
	}
	return &Store{dataDir: dataDir}
}

func (s *Store) path() string {
	return filepath.Join(s.dataDir, fileName)
}

// readLocked returns an empty document when the file does not exist yet.
func (s *Store) readLocked() (*document, error) {
	var doc document
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return &doc, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path(), err)
	}
	return &doc, nil
}

// writeLocked replaces the file via rename. Caller must hold s.mu.
func (s *Store) writeLocked(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

// update reads the document, applies fn and writes the result unless fn fails.
func (s *Store) update(fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.writeLocked(doc)
}

func (s *Store) LoadPrizes(ctx context.Context) ([]catalog.Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return doc.Prizes, nil
}

func (s *Store) SavePrizes(ctx context.Context, prizes []catalog.Prize) error {
	return s.update(func(doc *document) error {
		doc.Prizes = prizes
		return nil
	})
}

func (s *Store) SetStock(ctx context.Context, prizeID string, stock int) error {
	return s.update(func(doc *document) error {
		return setStock(doc, prizeID, stock)
	})
}

func setStock(doc *document, prizeID string, stock int) error {
	for i := range doc.Prizes {
		if doc.Prizes[i].ID == prizeID {
			doc.Prizes[i].Stock = catalog.Stock(stock)
			return nil
		}
	}
	return fmt.Errorf("prize %s not in %s", prizeID, fileName)
}

func (s *Store) Load(ctx context.Context) ([]ledger.SpinRecord, []ledger.WinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readLocked()
	if err != nil {
		return nil, nil, err
	}
	return doc.Spins, doc.Wins, nil
}

func (s *Store) AppendSpin(ctx context.Context, spin ledger.SpinRecord, win *ledger.WinRecord, stock *ledger.StockChange) error {
	return s.update(func(doc *document) error {
		if stock != nil {
			if err := setStock(doc, stock.PrizeID, stock.Remaining); err != nil {
				return err
			}
		}
		doc.Spins = append(doc.Spins, spin)
		if win != nil {
			doc.Wins = append(doc.Wins, *win)
		}
		return nil
	})
}

func (s *Store) SaveWin(ctx context.Context, win ledger.WinRecord) error {
	return s.update(func(doc *document) error {
		for i := range doc.Wins {
			if doc.Wins[i].ID == win.ID {
				doc.Wins[i] = win
				return nil
			}
		}
		return fmt.Errorf("win %s not in %s", win.ID, fileName)
	})
}
