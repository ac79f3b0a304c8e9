package repofakes

import (
	"context"
	"sync"

	"github.com/vendormesh/wabridge/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory sessions.Repo for tests.
type FakeSessionRepo struct {
	records map[string]*sessions.VendorSession
	lock    sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		records: make(map[string]*sessions.VendorSession),
	}
}

func (r *FakeSessionRepo) Get(_ context.Context, vendorID string) (*sessions.VendorSession, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	session, ok := r.records[vendorID]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *FakeSessionRepo) Upsert(_ context.Context, session *sessions.VendorSession) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *session
	r.records[session.VendorID] = &copied
	return nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, vendorID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.records, vendorID)
	return nil
}

// Len reports the number of stored records.
func (r *FakeSessionRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.records)
}
