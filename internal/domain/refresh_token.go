package domain

import (
	"strings"
	"time"
)

// RefreshToken is a long-lived bearer credential that is rotated on every use.
// Only the hash of the plaintext is kept.
type RefreshToken struct {
	id                  RefreshTokenID
	tokenHash           TokenHash
	staffAccountID      StaffAccountID
	issuedFromIPAddress string
	expiresAt           time.Time
	isRevoked           bool
	revokedAt           *time.Time
	replacedBy          *RefreshTokenID
	createdAt           time.Time

	version          Version
	persistedVersion Version
	events           []Event
}

// IssueRefreshTokenParams carries the inputs for a new token.
type IssueRefreshTokenParams struct {
	ID                  RefreshTokenID
	TokenHash           TokenHash
	StaffAccountID      StaffAccountID
	IssuedFromIPAddress string
	ExpiresAt           time.Time
	Now                 time.Time
}

// IssueRefreshToken creates an active token.
func IssueRefreshToken(p IssueRefreshTokenParams) (*RefreshToken, error) {
	if p.ID.IsZero() {
		return nil, validationError("id", "must be assigned")
	}
	if p.StaffAccountID.IsZero() {
		return nil, validationError("staff_account_id", "is required")
	}
	if p.TokenHash.String() == "" {
		return nil, validationError("token_hash", "is required")
	}
	if !p.ExpiresAt.After(p.Now) {
		return nil, validationError("expires_at", "must be in the future")
	}
	now := p.Now.UTC()
	t := &RefreshToken{
		id:                  p.ID,
		tokenHash:           p.TokenHash,
		staffAccountID:      p.StaffAccountID,
		issuedFromIPAddress: strings.TrimSpace(p.IssuedFromIPAddress),
		expiresAt:           p.ExpiresAt.UTC(),
		createdAt:           now,
		version:             InitialVersion,
	}
	t.record(RefreshTokenIssued{
		RefreshTokenID: t.id,
		StaffAccountID: t.staffAccountID,
		ExpiresAt:      t.expiresAt,
		At:             now,
	})
	return t, nil
}

// RefreshTokenSnapshot is the persisted shape of a refresh token.
type RefreshTokenSnapshot struct {
	ID                  RefreshTokenID
	TokenHash           TokenHash
	StaffAccountID      StaffAccountID
	IssuedFromIPAddress string
	ExpiresAt           time.Time
	IsRevoked           bool
	RevokedAt           *time.Time
	ReplacedBy          *RefreshTokenID
	CreatedAt           time.Time
	Version             Version
}

// RehydrateRefreshToken restores a token loaded from storage.
func RehydrateRefreshToken(s RefreshTokenSnapshot) (*RefreshToken, error) {
	if s.ID.IsZero() {
		return nil, validationError("id", "must be assigned")
	}
	if s.IsRevoked != (s.RevokedAt != nil) {
		return nil, validationError("revoked_at", "must be set exactly when the token is revoked")
	}
	if s.ReplacedBy != nil && !s.IsRevoked {
		return nil, validationError("replaced_by", "only revoked tokens can be replaced")
	}
	if _, err := NewVersion(s.Version.Int64()); err != nil {
		return nil, err
	}
	return &RefreshToken{
		id:                  s.ID,
		tokenHash:           s.TokenHash,
		staffAccountID:      s.StaffAccountID,
		issuedFromIPAddress: s.IssuedFromIPAddress,
		expiresAt:           s.ExpiresAt,
		isRevoked:           s.IsRevoked,
		revokedAt:           copyTime(s.RevokedAt),
		replacedBy:          copyTokenID(s.ReplacedBy),
		createdAt:           s.CreatedAt,
		version:             s.Version,
		persistedVersion:    s.Version,
	}, nil
}

// Snapshot returns the persisted shape of the token.
func (t *RefreshToken) Snapshot() RefreshTokenSnapshot {
	return RefreshTokenSnapshot{
		ID:                  t.id,
		TokenHash:           t.tokenHash,
		StaffAccountID:      t.staffAccountID,
		IssuedFromIPAddress: t.issuedFromIPAddress,
		ExpiresAt:           t.expiresAt,
		IsRevoked:           t.isRevoked,
		RevokedAt:           copyTime(t.revokedAt),
		ReplacedBy:          copyTokenID(t.replacedBy),
		CreatedAt:           t.createdAt,
		Version:             t.version,
	}
}

func (t *RefreshToken) ID() RefreshTokenID               { return t.id }
func (t *RefreshToken) TokenHash() TokenHash             { return t.tokenHash }
func (t *RefreshToken) StaffAccountID() StaffAccountID   { return t.staffAccountID }
func (t *RefreshToken) IssuedFromIPAddress() string      { return t.issuedFromIPAddress }
func (t *RefreshToken) ExpiresAt() time.Time             { return t.expiresAt }
func (t *RefreshToken) IsRevoked() bool                  { return t.isRevoked }
func (t *RefreshToken) RevokedAt() *time.Time            { return copyTime(t.revokedAt) }
func (t *RefreshToken) ReplacedBy() *RefreshTokenID      { return copyTokenID(t.replacedBy) }
func (t *RefreshToken) CreatedAt() time.Time             { return t.createdAt }
func (t *RefreshToken) Version() Version                 { return t.version }
func (t *RefreshToken) PersistedVersion() Version        { return t.persistedVersion }
func (t *RefreshToken) MarkPersisted()                   { t.persistedVersion = t.version }
func (t *RefreshToken) IsExpired(now time.Time) bool     { return !t.expiresAt.After(now) }
func (t *RefreshToken) IsActive(now time.Time) bool      { return !t.isRevoked && !t.IsExpired(now) }
func (t *RefreshToken) BelongsTo(id StaffAccountID) bool { return t.staffAccountID == id }

// PullEvents drains the events recorded since the last call.
func (t *RefreshToken) PullEvents() []Event {
	events := t.events
	t.events = nil
	return events
}

// Revoke kills the token. Revoking twice is reported, not absorbed, because a
// second revocation means the token was presented again.
func (t *RefreshToken) Revoke(now time.Time) error {
	if t.isRevoked {
		return ErrAlreadyRevoked
	}
	now = now.UTC()
	t.isRevoked = true
	t.revokedAt = &now
	t.version = t.version.Next()
	t.record(RefreshTokenRevoked{RefreshTokenID: t.id, StaffAccountID: t.staffAccountID, At: now})
	return nil
}

// MarkReplacedBy links the token to its successor. It is only legal right
// after Revoke within the same rotation and does not bump the version again.
func (t *RefreshToken) MarkReplacedBy(newID RefreshTokenID) error {
	if !t.isRevoked || t.version == t.persistedVersion {
		return transitionError("refresh token must be revoked in the same rotation before it is replaced")
	}
	if t.replacedBy != nil {
		return transitionError("refresh token already replaced")
	}
	if newID.IsZero() || newID == t.id {
		return validationError("replaced_by", "must reference another token")
	}
	id := newID
	t.replacedBy = &id
	for i := len(t.events) - 1; i >= 0; i-- {
		if revoked, ok := t.events[i].(RefreshTokenRevoked); ok {
			revoked.ReplacedBy = &id
			t.events[i] = revoked
			break
		}
	}
	return nil
}

func (t *RefreshToken) record(e Event) { t.events = append(t.events, e) }

func copyTokenID(id *RefreshTokenID) *RefreshTokenID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
