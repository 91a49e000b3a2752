package memory

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gridwatt/energymarket/internal/types"
)

// Store is an in-memory backend implementing the storage interfaces.
//
// Locking is per entity, not one broad mutex: the map-level RWMutexes are
// held only for lookups and inserts, while mutations take the entity's own
// lock. Multi-entity operations (Transfer, Settle) acquire entity locks in
// a deterministic order to stay deadlock-free.
type Store struct {
	accountsMu sync.RWMutex
	accounts   map[string]*account

	ordersMu sync.RWMutex
	orders   map[uuid.UUID]*orderEntry
	orderSeq []uuid.UUID // insertion order == created_at ascending

	tradesMu sync.RWMutex
	trades   map[uuid.UUID]*types.Trade
	tradeSeq []uuid.UUID

	transfersMu sync.Mutex
	transfers   []*types.Transfer
}

type account struct {
	mu sync.Mutex
	p  types.Prosumer
}

type orderEntry struct {
	mu sync.Mutex
	o  types.Order
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
		orders:   make(map[uuid.UUID]*orderEntry),
		trades:   make(map[uuid.UUID]*types.Trade),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) lookupAccount(address string) (*account, bool) {
	s.accountsMu.RLock()
	defer s.accountsMu.RUnlock()
	a, ok := s.accounts[address]
	return a, ok
}

func (s *Store) lookupOrder(id uuid.UUID) (*orderEntry, bool) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	e, ok := s.orders[id]
	return e, ok
}

// lockAccounts locks the given accounts in lexicographic address order,
// skipping duplicates, and returns the unlock function.
func lockAccounts(accts map[string]*account) func() {
	keys := make([]string, 0, len(accts))
	for k := range accts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		accts[k].mu.Lock()
	}
	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			accts[keys[i]].mu.Unlock()
		}
	}
}

// lockOrders locks two order entries in id-byte order and returns the
// unlock function.
func lockOrders(a, b *orderEntry) func() {
	first, second := a, b
	if bytes.Compare(a.o.ID[:], b.o.ID[:]) > 0 {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// paginate applies 1-based page/limit windowing to n items and returns the
// [lo, hi) bounds.
func paginate(n, page, limit int) (int, int) {
	if limit <= 0 {
		return 0, n
	}
	if page < 1 {
		page = 1
	}
	lo := (page - 1) * limit
	if lo > n {
		return n, n
	}
	hi := lo + limit
	if hi > n {
		hi = n
	}
	return lo, hi
}
