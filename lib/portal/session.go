package portal

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"actassist-backend/lib/browser"

	"github.com/chromedp/cdproto/network"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Session is a logged in cookie jar that can be restored into a fresh
// browser.
type Session struct {
	Cookies   []*network.CookieParam
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionCache remembers portal sessions per credential so consecutive
// operations can skip the login form. Entries expire after the cache TTL or
// when the earliest persistent cookie expires, whichever comes first.
type SessionCache struct {
	sessions *expirable.LRU[string, Session]
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionCache(size int, ttl time.Duration) *SessionCache {
	return &SessionCache{
		sessions: expirable.NewLRU[string, Session](size, nil, ttl),
		ttl:      ttl,
		now:      time.Now,
	}
}

// the password is part of the key, a changed password never reuses cookies
// from the old one
func sessionKey(cred Credential) string {
	sum := sha256.Sum256([]byte(cred.Username + "\x00" + cred.Password))
	return hex.EncodeToString(sum[:])
}

func (c *SessionCache) Get(cred Credential) (Session, bool) {
	key := sessionKey(cred)
	session, ok := c.sessions.Get(key)
	if !ok {
		return Session{}, false
	}
	if !c.now().Before(session.ExpiresAt) {
		c.sessions.Remove(key)
		return Session{}, false
	}
	return session, true
}

func (c *SessionCache) Put(cred Credential, cookies []*network.Cookie) Session {
	now := c.now()
	expires := now.Add(c.ttl)
	for _, cookie := range cookies {
		if cookie.Session || cookie.Expires <= 0 {
			continue
		}
		at := time.Unix(0, int64(cookie.Expires*float64(time.Second)))
		if at.Before(expires) {
			expires = at
		}
	}

	session := Session{
		Cookies:   browser.CookieParams(cookies),
		CreatedAt: now,
		ExpiresAt: expires,
	}
	c.sessions.Add(sessionKey(cred), session)
	return session
}

func (c *SessionCache) Forget(cred Credential) {
	c.sessions.Remove(sessionKey(cred))
}

func (c *SessionCache) Len() int {
	return c.sessions.Len()
}
