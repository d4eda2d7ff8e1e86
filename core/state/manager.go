package state

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"corndex/storage"
)

// Manager provides journaled key/value access to venue state. Writes land in
// an in-memory overlay and are recorded in an undo journal so a unit of work
// can be reverted to any earlier snapshot. Commit flushes the overlay to the
// backing database.
//
// Manager is not safe for concurrent use; the venue serialises access.
type Manager struct {
	db      storage.Database
	dirty   map[string]overlayEntry
	journal []journalEntry
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

type journalEntry struct {
	key     string
	prev    overlayEntry
	hadPrev bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	if db == nil {
		db = storage.NewMemDB()
	}
	return &Manager{
		db:    db,
		dirty: make(map[string]overlayEntry),
	}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) read(hashed []byte) ([]byte, bool, error) {
	if entry, ok := m.dirty[string(hashed)]; ok {
		if entry.deleted {
			return nil, false, nil
		}
		return entry.value, true, nil
	}
	value, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) write(hashed []byte, entry overlayEntry) {
	k := string(hashed)
	prev, hadPrev := m.dirty[k]
	m.journal = append(m.journal, journalEntry{key: k, prev: prev, hadPrev: hadPrev})
	m.dirty[k] = entry
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.write(kvKey(key), overlayEntry{value: encoded})
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := m.read(kvKey(key))
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the key. Deleting a missing key is a journaled no-op.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.write(kvKey(key), overlayEntry{deleted: true})
	return nil
}

// BigInt loads an unsigned integer, returning zero for missing keys.
func (m *Manager) BigInt(key []byte) (*big.Int, error) {
	out := new(big.Int)
	if _, err := m.KVGet(key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetBigInt stores an unsigned integer. Zero values delete the key so unused
// state does not accumulate.
func (m *Manager) SetBigInt(key []byte, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return m.KVDelete(key)
	}
	if value.Sign() < 0 {
		return fmt.Errorf("kv: negative value not allowed")
	}
	return m.KVPut(key, value)
}

// KVAppend appends value to the byte-slice list stored under key. Duplicate
// values are ignored to keep the index deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	list, err := m.KVGetList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVGetList returns the byte-slice list stored under key, or an empty list.
func (m *Manager) KVGetList(key []byte) ([][]byte, error) {
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = [][]byte{}
	}
	return list, nil
}

// Snapshot returns a revision identifier for the current point in the
// journal.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot undoes every write made after the supplied revision.
// Revisions are LIFO: reverting to an older revision invalidates newer ones.
func (m *Manager) RevertToSnapshot(rev int) error {
	if rev < 0 || rev > len(m.journal) {
		return fmt.Errorf("state: revision %d out of range [0,%d]", rev, len(m.journal))
	}
	for i := len(m.journal) - 1; i >= rev; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.dirty[entry.key] = entry.prev
		} else {
			delete(m.dirty, entry.key)
		}
	}
	m.journal = m.journal[:rev]
	return nil
}

// Commit persists the overlay to the backing database and clears the journal.
func (m *Manager) Commit() error {
	puts := make(map[string][]byte, len(m.dirty))
	var deletes [][]byte
	for k, entry := range m.dirty {
		if entry.deleted {
			deletes = append(deletes, []byte(k))
			continue
		}
		puts[k] = entry.value
	}
	if batcher, ok := m.db.(storage.Batcher); ok {
		if err := batcher.WriteBatch(puts, deletes); err != nil {
			return fmt.Errorf("state: commit batch: %w", err)
		}
	} else {
		for k, v := range puts {
			if err := m.db.Put([]byte(k), v); err != nil {
				return fmt.Errorf("state: commit put: %w", err)
			}
		}
		for _, k := range deletes {
			if err := m.db.Delete(k); err != nil {
				return fmt.Errorf("state: commit delete: %w", err)
			}
		}
	}
	m.dirty = make(map[string]overlayEntry)
	m.journal = nil
	return nil
}

// Discard drops every uncommitted write.
func (m *Manager) Discard() {
	m.dirty = make(map[string]overlayEntry)
	m.journal = nil
}

// Pending reports the number of keys touched since the last commit.
func (m *Manager) Pending() int {
	return len(m.dirty)
}
