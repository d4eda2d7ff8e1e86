package amm

import (
	"math/big"

	"corndex/crypto"
)

// PoolState owns the pool's reserves and share ledger.
type PoolState interface {
	Reserves() (base, quoted *big.Int, err error)
	SetReserves(base, quoted *big.Int) error
	TotalShares() (*big.Int, error)
	SetTotalShares(total *big.Int) error
	SharesOf(provider crypto.Address) (*big.Int, error)
	SetShares(provider crypto.Address, shares *big.Int) error
}

// Storage is the subset of the state manager used by Store.
type Storage interface {
	BigInt(key []byte) (*big.Int, error)
	SetBigInt(key []byte, value *big.Int) error
}

var (
	baseReserveKey   = []byte("amm/reserve/base")
	quotedReserveKey = []byte("amm/reserve/quoted")
	totalSharesKey   = []byte("amm/shares/total")
	sharesPrefix     = []byte("amm/shares/holder/")
)

func sharesKey(provider crypto.Address) []byte {
	raw := provider.Bytes()
	buf := make([]byte, len(sharesPrefix)+len(raw))
	copy(buf, sharesPrefix)
	copy(buf[len(sharesPrefix):], raw)
	return buf
}

// Store persists PoolState in the journaled state manager.
type Store struct {
	kv Storage
}

// NewStore wraps the supplied storage.
func NewStore(kv Storage) *Store { return &Store{kv: kv} }

func (s *Store) Reserves() (*big.Int, *big.Int, error) {
	base, err := s.kv.BigInt(baseReserveKey)
	if err != nil {
		return nil, nil, err
	}
	quoted, err := s.kv.BigInt(quotedReserveKey)
	if err != nil {
		return nil, nil, err
	}
	return base, quoted, nil
}

func (s *Store) SetReserves(base, quoted *big.Int) error {
	if err := s.kv.SetBigInt(baseReserveKey, base); err != nil {
		return err
	}
	return s.kv.SetBigInt(quotedReserveKey, quoted)
}

func (s *Store) TotalShares() (*big.Int, error) { return s.kv.BigInt(totalSharesKey) }

func (s *Store) SetTotalShares(total *big.Int) error { return s.kv.SetBigInt(totalSharesKey, total) }

func (s *Store) SharesOf(provider crypto.Address) (*big.Int, error) {
	return s.kv.BigInt(sharesKey(provider))
}

func (s *Store) SetShares(provider crypto.Address, shares *big.Int) error {
	return s.kv.SetBigInt(sharesKey(provider), shares)
}
