package ingest_test

import (
	"context"
	"sort"
	"sync"

	"github.com/JaimeStill/erisa/internal/claims"
)

type detailKey struct {
	claimID int64
	cpt     string
}

// memStore is an in-memory ingest.Store with the same not-found and
// duplicate semantics as the PostgreSQL repository.
type memStore struct {
	mu      sync.Mutex
	claims  map[int64]claims.Claim
	details map[detailKey]claims.Detail
	nextID  int64
	writes  int
}

func newMemStore() *memStore {
	return &memStore{
		claims:  make(map[int64]claims.Claim),
		details: make(map[detailKey]claims.Detail),
	}
}

func (m *memStore) Find(_ context.Context, id int64) (*claims.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, claims.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) CreateClaim(_ context.Context, c claims.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[c.ID]; ok {
		return claims.ErrDuplicate
	}
	m.claims[c.ID] = c
	m.writes++
	return nil
}

func (m *memStore) UpdateClaim(_ context.Context, c claims.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[c.ID]; !ok {
		return claims.ErrNotFound
	}
	m.claims[c.ID] = c
	m.writes++
	return nil
}

func (m *memStore) FindDetail(_ context.Context, claimID int64, cpt string) (*claims.Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[detailKey{claimID, cpt}]
	if !ok {
		return nil, claims.ErrDetailNotFound
	}
	return &d, nil
}

func (m *memStore) CreateDetail(_ context.Context, d claims.Detail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[d.ClaimID]; !ok {
		return claims.ErrNotFound
	}
	key := detailKey{d.ClaimID, d.CPTCode}
	if _, ok := m.details[key]; ok {
		return claims.ErrDuplicate
	}
	m.nextID++
	d.ID = m.nextID
	m.details[key] = d
	m.writes++
	return nil
}

func (m *memStore) UpdateDetail(_ context.Context, d claims.Detail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := detailKey{d.ClaimID, d.CPTCode}
	existing, ok := m.details[key]
	if !ok {
		return claims.ErrDetailNotFound
	}
	existing.DenialReason = d.DenialReason
	m.details[key] = existing
	m.writes++
	return nil
}

func (m *memStore) Clear(context.Context) (claims.ClearResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := claims.ClearResult{Claims: int64(len(m.claims)), Details: int64(len(m.details))}
	m.claims = make(map[int64]claims.Claim)
	m.details = make(map[detailKey]claims.Detail)
	return res, nil
}

// snapshot returns stored claims and details in a stable order, with
// surrogate detail ids zeroed so runs can be compared.
func (m *memStore) snapshot() ([]claims.Claim, []claims.Detail) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := make([]claims.Claim, 0, len(m.claims))
	for _, c := range m.claims {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })

	ds := make([]claims.Detail, 0, len(m.details))
	for _, d := range m.details {
		d.ID = 0
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].ClaimID != ds[j].ClaimID {
			return ds[i].ClaimID < ds[j].ClaimID
		}
		return ds[i].CPTCode < ds[j].CPTCode
	})
	return cs, ds
}
