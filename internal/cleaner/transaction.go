package cleaner

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

const journalName = "journal.json"

// Entry maps one quarantined file back to where it came from
type Entry struct {
	Record         scanner.FileRecord `json:"record"`
	QuarantinePath string             `json:"quarantine_path"`
}

// Transaction is a batch of files moved into quarantine but not yet
// permanently removed. Each transaction owns one subdirectory of the
// quarantine, named by its ID.
type Transaction struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Entries   []Entry   `json:"entries"`

	dir string
}

func newTransaction(root string) *Transaction {
	id := uuid.NewString()
	return &Transaction{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Entries:   []Entry{},
		dir:       filepath.Join(root, id),
	}
}

// Dir returns the transaction's quarantine subdirectory
func (tx *Transaction) Dir() string {
	return tx.dir
}

// Size sums the sizes of the quarantined files
func (tx *Transaction) Size() int64 {
	var total int64
	for _, e := range tx.Entries {
		total += e.Record.Size
	}
	return total
}

// Records returns the original records of every entry
func (tx *Transaction) Records() []scanner.FileRecord {
	records := make([]scanner.FileRecord, len(tx.Entries))
	for i, e := range tx.Entries {
		records[i] = e.Record
	}
	return records
}

func (tx *Transaction) clone() Transaction {
	c := *tx
	c.Entries = append([]Entry(nil), tx.Entries...)
	return c
}

// quarantineName keeps files apart inside one transaction even when their
// base names collide.
func quarantineName(seq int, r scanner.FileRecord) string {
	name := r.Name
	if name == "" {
		name = filepath.Base(r.Path)
	}
	return fmt.Sprintf("%05d_%s", seq, name)
}

func writeJournal(fs afero.Fs, tx *Transaction) error {
	data, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}

	path := filepath.Join(tx.dir, journalName)
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}

func readJournal(fs afero.Fs, dir string) (*Transaction, error) {
	data, err := afero.ReadFile(fs, filepath.Join(dir, journalName))
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode journal: %w", err)
	}
	tx.dir = dir

	// entries planned before a crash may never have been moved
	kept := tx.Entries[:0]
	for _, e := range tx.Entries {
		if ok, _ := afero.Exists(fs, e.QuarantinePath); ok {
			kept = append(kept, e)
		}
	}
	tx.Entries = kept
	return &tx, nil
}

// loadTransactions reads every transaction directory under root, newest first.
// Directories without a readable journal are returned separately.
func loadTransactions(fs afero.Fs, root string) ([]*Transaction, []string, error) {
	infos, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, nil, err
	}

	var txs []*Transaction
	var orphans []string
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		dir := filepath.Join(root, info.Name())
		tx, err := readJournal(fs, dir)
		if err != nil {
			orphans = append(orphans, dir)
			continue
		}
		txs = append(txs, tx)
	}

	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, orphans, nil
}
