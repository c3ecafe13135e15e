package main

import (
	"crypto/rand"
	"crypto/subtle"
	"sync"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for the demo credential table.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// demoUsers is an in-memory credential table standing in for the caller's user store.
type demoUsers struct {
	mu      sync.RWMutex
	byLogin map[string]demoUser
	dummy   demoUser
}

type demoUser struct {
	id    string
	salt  []byte
	key   []byte
	roles []string
}

func newDemoUsers() *demoUsers {
	d := &demoUsers{byLogin: make(map[string]demoUser)}
	d.dummy = newDemoUser("", "dummy-password")
	return d
}

func newDemoUser(id, password string, roles ...string) demoUser {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		panic(err)
	}
	return demoUser{
		id:    id,
		salt:  salt,
		key:   argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen),
		roles: roles,
	}
}

func (d *demoUsers) put(login, id, password string, roles ...string) {
	u := newDemoUser(id, password, roles...)
	d.mu.Lock()
	d.byLogin[login] = u
	d.mu.Unlock()
}

func (d *demoUsers) check(login, password string) (demoUser, bool) {
	d.mu.RLock()
	u, ok := d.byLogin[login]
	d.mu.RUnlock()

	// Unknown logins still pay for one derivation.
	ref := u
	if !ok {
		ref = d.dummy
	}
	key := argon2.IDKey([]byte(password), ref.salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	if !ok || subtle.ConstantTimeCompare(key, ref.key) != 1 {
		return demoUser{}, false
	}
	return u, true
}
