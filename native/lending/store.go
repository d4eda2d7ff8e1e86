package lending

import (
	"fmt"
	"math/big"

	"corndex/crypto"
)

type engineState interface {
	GetPosition(addr crypto.Address) (*Position, error)
	PutPosition(position *Position) error
	ListAccounts() ([]crypto.Address, error)
}

// Storage abstracts the subset of state manager functionality required by the
// position store.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte) ([][]byte, error)
}

var (
	positionPrefix   = []byte("lending/position/")
	positionIndexKey = []byte("lending/position/index")
)

func positionKey(addr crypto.Address) []byte {
	raw := addr.Bytes()
	buf := make([]byte, len(positionPrefix)+len(raw))
	copy(buf, positionPrefix)
	copy(buf[len(positionPrefix):], raw)
	return buf
}

type storedPosition struct {
	Collateral *big.Int
	Debt       *big.Int
}

// Store persists positions keyed by account and keeps an index of every
// account that ever opened one.
type Store struct {
	kv Storage
}

// NewStore wraps the supplied storage.
func NewStore(kv Storage) *Store { return &Store{kv: kv} }

func (s *Store) GetPosition(addr crypto.Address) (*Position, error) {
	var stored storedPosition
	ok, err := s.kv.KVGet(positionKey(addr), &stored)
	if err != nil {
		return nil, fmt.Errorf("lending: load position: %w", err)
	}
	position := &Position{Account: addr, Collateral: big.NewInt(0), Debt: big.NewInt(0)}
	if ok {
		if stored.Collateral != nil {
			position.Collateral.Set(stored.Collateral)
		}
		if stored.Debt != nil {
			position.Debt.Set(stored.Debt)
		}
	}
	return position, nil
}

func (s *Store) PutPosition(position *Position) error {
	if position == nil {
		return fmt.Errorf("lending: nil position")
	}
	key := positionKey(position.Account)
	if position.Empty() {
		return s.kv.KVDelete(key)
	}
	stored := storedPosition{Collateral: big.NewInt(0), Debt: big.NewInt(0)}
	if position.Collateral != nil {
		stored.Collateral.Set(position.Collateral)
	}
	if position.Debt != nil {
		stored.Debt.Set(position.Debt)
	}
	if err := s.kv.KVPut(key, stored); err != nil {
		return err
	}
	return s.kv.KVAppend(positionIndexKey, position.Account.Bytes())
}

func (s *Store) ListAccounts() ([]crypto.Address, error) {
	raw, err := s.kv.KVGetList(positionIndexKey)
	if err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raw))
	for _, b := range raw {
		addr, err := crypto.NewAddress(crypto.AccountPrefix, b)
		if err != nil {
			return nil, fmt.Errorf("lending: corrupt position index: %w", err)
		}
		out = append(out, addr)
	}
	return out, nil
}
