package actassist

import (
	"time"

	"actassist-backend/lib/portal"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mazen160/go-random"
)

const tokenLength = 32

// credentialStore maps session tokens to the credentials they were created
// with. Tokens expire after the ttl, the least recently used token is
// evicted once the store is full.
type credentialStore struct {
	tokens *expirable.LRU[string, portal.Credential]
}

func newCredentialStore(size int, ttl time.Duration) *credentialStore {
	return &credentialStore{
		tokens: expirable.NewLRU[string, portal.Credential](size, nil, ttl),
	}
}

func (s *credentialStore) create(cred portal.Credential) (string, error) {
	token, err := random.String(tokenLength)
	if err != nil {
		return "", err
	}
	s.tokens.Add(token, cred)
	return token, nil
}

func (s *credentialStore) get(token string) (portal.Credential, bool) {
	if token == "" {
		return portal.Credential{}, false
	}
	return s.tokens.Get(token)
}

func (s *credentialStore) remove(token string) {
	s.tokens.Remove(token)
}

func (s *credentialStore) len() int {
	return s.tokens.Len()
}
