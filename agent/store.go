package agent

import (
	"context"
	"fmt"
)

const sessionNamespace = "appraisal:session"

// SessionStore persists sessions by id. Values are cloned on the way in and
// out so callers never share slices with the backing cache.
type SessionStore struct {
	core      Cache[*Session]
	namespace string
}

func NewSessionStore(core Cache[*Session]) *SessionStore {
	return &SessionStore{core: core, namespace: sessionNamespace}
}

func NewMemorySessionStore() *SessionStore {
	return NewSessionStore(NewMemoryCache[*Session](0))
}

func (s *SessionStore) key(id string) string {
	return s.namespace + ":" + id
}

func (s *SessionStore) Get(ctx context.Context, id string) (*Session, bool, error) {
	sess, ok, err := s.core.Get(ctx, s.key(id))
	if err != nil || !ok || sess == nil {
		return nil, false, err
	}
	return sess.Clone(), true, nil
}

func (s *SessionStore) Put(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("%w: session without id", ErrInvalidRequest)
	}
	return s.core.Set(ctx, s.key(sess.ID), sess.Clone())
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	ok, err := s.core.Del(ctx, s.key(id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func (s *SessionStore) Count(ctx context.Context) (int, error) {
	return s.core.Count(ctx, s.namespace+":")
}
