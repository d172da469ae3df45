package domain

import (
	"sort"
	"time"
)

// PasswordHistoryDepth is how many previous passwords a holder may not reuse.
const PasswordHistoryDepth = 5

// PasswordHistoryEntry is an append-only record of a password an account held.
type PasswordHistoryEntry struct {
	StaffAccountID StaffAccountID
	HashedPassword PasswordHash
	IsTemporary    bool
	ChangedAt      time.Time
}

// NewPasswordHistoryEntry validates an entry.
func NewPasswordHistoryEntry(staffAccountID StaffAccountID, hash PasswordHash, temporary bool, changedAt time.Time) (PasswordHistoryEntry, error) {
	if staffAccountID.IsZero() {
		return PasswordHistoryEntry{}, validationError("staff_account_id", "is required")
	}
	if hash.String() == "" {
		return PasswordHistoryEntry{}, validationError("hashed_password", "is required")
	}
	return PasswordHistoryEntry{
		StaffAccountID: staffAccountID,
		HashedPassword: hash,
		IsTemporary:    temporary,
		ChangedAt:      changedAt.UTC(),
	}, nil
}

// StaffAccountPasswordHistory is the non-empty history of one account,
// newest entry first.
type StaffAccountPasswordHistory struct {
	staffAccountID StaffAccountID
	entries        []PasswordHistoryEntry
}

// NewStaffAccountPasswordHistory requires at least one entry and a single owner.
func NewStaffAccountPasswordHistory(entries []PasswordHistoryEntry) (*StaffAccountPasswordHistory, error) {
	if len(entries) == 0 {
		return nil, validationError("password_history", "must contain at least one entry")
	}
	owner := entries[0].StaffAccountID
	for _, e := range entries[1:] {
		if e.StaffAccountID != owner {
			return nil, validationError("password_history", "entries belong to different staff accounts")
		}
	}
	sorted := make([]PasswordHistoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ChangedAt.After(sorted[j].ChangedAt)
	})
	return &StaffAccountPasswordHistory{staffAccountID: owner, entries: sorted}, nil
}

// StaffAccountID returns the owner of the history.
func (h *StaffAccountPasswordHistory) StaffAccountID() StaffAccountID { return h.staffAccountID }

// Entries returns a copy of the entries, newest first.
func (h *StaffAccountPasswordHistory) Entries() []PasswordHistoryEntry {
	out := make([]PasswordHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Latest returns the newest entry.
func (h *StaffAccountPasswordHistory) Latest() PasswordHistoryEntry { return h.entries[0] }

// Recent returns up to n newest entries.
func (h *StaffAccountPasswordHistory) Recent(n int) []PasswordHistoryEntry {
	if n <= 0 {
		return nil
	}
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]PasswordHistoryEntry, n)
	copy(out, h.entries[:n])
	return out
}
