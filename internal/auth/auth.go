// Package auth manages identities and bearer-token sessions in protected
// storage.
package auth

import (
	"github.com/papyr-dev/papyr-store/internal/logger"
	"github.com/papyr-dev/papyr-store/internal/serviceerr"
	"github.com/papyr-dev/papyr-store/internal/store"
	"github.com/papyr-dev/papyr-store/internal/vault"
	"github.com/papyr-dev/papyr-store/pkg/schema"
)

const loginMismatch = "Login or password don't match"

// Manager owns the lifecycle of the protected users and sessions
// collections. The identity field name (e.g. "email") is configurable.
type Manager struct {
	protected *store.MemStore
	hasher    *vault.Keyed
	identity  string
	log       *logger.Logger
}

func NewManager(protected *store.MemStore, hasher *vault.Keyed, identityField string, log *logger.Logger) *Manager {
	return &Manager{
		protected: protected,
		hasher:    hasher,
		identity:  identityField,
		log:       log,
	}
}

// Register creates a new identity, stores its keyed password hash and
// issues a session. The returned record carries accessToken and never
// hashedPassword.
func (m *Manager) Register(body schema.Record) (schema.Record, error) {
	identityValue, _ := body[m.identity].(string)
	password, _ := body["password"].(string)
	if identityValue == "" || password == "" {
		return nil, serviceerr.Request("Missing fields")
	}

	existing, err := m.protected.QueryBy(store.UsersCollection, schema.Record{m.identity: identityValue})
	if err != nil && err != store.ErrCollectionNotFound {
		return nil, err
	}
	if len(existing) != 0 {
		return nil, serviceerr.Conflict("A user with the same " + m.identity + " already exists")
	}

	user := schema.AssignClean(schema.Record{}, body)
	delete(user, "password")
	user["hashedPassword"] = m.hasher.Hash(password)

	result := m.protected.Add(store.UsersCollection, user)
	delete(result, "hashedPassword")

	session := m.saveSession(result[schema.FieldID].(string))
	result["accessToken"] = session["accessToken"]

	m.log.Info("registered user", m.identity, identityValue)
	return result, nil
}

// Login authenticates an identity and issues a fresh session. Unknown
// identities and wrong passwords fail with an identical message.
func (m *Manager) Login(body schema.Record) (schema.Record, error) {
	identityValue, _ := body[m.identity].(string)
	password, _ := body["password"].(string)

	matches, err := m.protected.QueryBy(store.UsersCollection, schema.Record{m.identity: identityValue})
	if err != nil && err != store.ErrCollectionNotFound {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, serviceerr.Credential(loginMismatch)
	}

	user := matches[0]
	if m.hasher.Hash(password) != user["hashedPassword"] {
		return nil, serviceerr.Credential(loginMismatch)
	}

	result := schema.CopyRecord(user)
	delete(result, "hashedPassword")

	session := m.saveSession(user[schema.FieldID].(string))
	result["accessToken"] = session["accessToken"]

	m.log.Info("logged in", m.identity, identityValue)
	return result, nil
}

// Logout deletes exactly the session that authenticated the current
// request. Later requests with the same token fail token resolution.
func (m *Manager) Logout(sessionID string) error {
	if sessionID == "" {
		return serviceerr.Credential("User session does not exist")
	}
	if _, err := m.protected.Delete(store.SessionsCollection, sessionID); err != nil {
		return serviceerr.Credential("User session does not exist")
	}
	return nil
}

// ResolveToken maps a bearer token to its session and owning user. A token
// that no longer resolves (stale, logged out) fails the whole request.
func (m *Manager) ResolveToken(token string) (user schema.Record, sessionID string, err error) {
	sessions, err := m.protected.QueryBy(store.SessionsCollection, schema.Record{"accessToken": token})
	if err != nil || len(sessions) == 0 {
		return nil, "", serviceerr.Credential("Invalid access token")
	}

	session := sessions[0]
	userID, _ := session["userId"].(string)
	user, err = m.protected.Get(store.UsersCollection, userID)
	if err != nil {
		return nil, "", serviceerr.Credential("Invalid access token")
	}

	sessionID, _ = session[schema.FieldID].(string)
	return user, sessionID, nil
}

// Sanitize strips credentials from a user record before exposure.
func Sanitize(user schema.Record) schema.Record {
	result := schema.CopyRecord(user)
	delete(result, "hashedPassword")
	return result
}

// saveSession stores a session whose access token is the keyed hash of
// the session's own ID.
func (m *Manager) saveSession(userID string) schema.Record {
	session := m.protected.Add(store.SessionsCollection, schema.Record{"userId": userID})
	sessionID := session[schema.FieldID].(string)

	session, _ = m.protected.Merge(store.SessionsCollection, sessionID, schema.Record{
		"accessToken": m.hasher.Hash(sessionID),
	})
	return session
}
