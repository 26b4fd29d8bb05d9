package sessionrepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-pokedex/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	session *session.Session
	lock    sync.RWMutex

	// Err, when set, is returned by every call
	Err error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

func (sr *FakeSessionRepo) Get(_ context.Context) (*session.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	if sr.Err != nil {
		return nil, sr.Err
	}
	if sr.session == nil {
		return nil, nil
	}
	s := *sr.session
	return &s, nil
}

func (sr *FakeSessionRepo) Upsert(_ context.Context, s *session.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	if sr.Err != nil {
		return sr.Err
	}
	stored := *s
	sr.session = &stored
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	if sr.Err != nil {
		return sr.Err
	}
	sr.session = nil
	return nil
}
