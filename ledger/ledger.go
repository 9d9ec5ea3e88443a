// Package ledger implements the DID/SBT Ledger: a process-wide identity
// registry plus issuer of non-transferable achievement credentials (SBTs).
// It has no dependency on any other core component (spec §2).
package ledger

import (
	"sync"

	"github.com/aegis-protocol/aegis-core/clock"
	"github.com/aegis-protocol/aegis-core/crypto"
)

// DIDProfile is a self-registered identity record keyed by the owner's
// principal. registration_date is overwritten on every re-registration.
type DIDProfile struct {
	Owner            crypto.PublicKey
	Name             string
	EntityType       string
	ContactInfo      string
	RegistrationDate int64 // unix seconds
}

// SBT (Soulbound Token) is a non-transferable badge recording participation.
// Once issued, an SBT is never transferred, deleted, or modified.
type SBT struct {
	BadgeID   uint64
	Issuer    crypto.PublicKey
	EventName string
	BadgeType string
	IssuedAt  int64 // unix seconds
}

// Ledger is the DID/SBT Ledger component. All exported methods take the
// ledger's own mutex for their full duration, which is how the single-actor,
// one-operation-at-a-time scheduling model of spec §5 is realized.
type Ledger struct {
	mu sync.Mutex

	admin crypto.PublicKey
	clock clock.Clock

	didRegistry       map[string]*DIDProfile
	sbtLedger         map[string][]*SBT
	nextBadgeID       uint64
	authorizedMinters map[string]bool
}

// New creates a new Ledger. admin is fixed for the lifetime of the ledger.
func New(admin crypto.PublicKey, c clock.Clock) *Ledger {
	return &Ledger{
		admin:             admin,
		clock:             c,
		didRegistry:       make(map[string]*DIDProfile),
		sbtLedger:         make(map[string][]*SBT),
		authorizedMinters: make(map[string]bool),
	}
}

// RegisterDID creates or replaces the profile owned by caller. Always
// succeeds.
func (l *Ledger) RegisterDID(caller crypto.PublicKey, name, entityType, contactInfo string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.didRegistry[caller.String()] = &DIDProfile{
		Owner:            caller,
		Name:             name,
		EntityType:       entityType,
		ContactInfo:      contactInfo,
		RegistrationDate: l.clock.Now().Unix(),
	}

	return "DID registered successfully"
}

// MintSBT issues a new SBT to recipient, crediting it to caller as issuer.
// Fails with an authorization error unless caller is an authorized minter.
func (l *Ledger) MintSBT(caller, recipient crypto.PublicKey, eventName, badgeType string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.authorizedMinters[caller.String()] {
		return "", ErrUnauthorizedMinter
	}

	badge := &SBT{
		BadgeID:   l.nextBadgeID,
		Issuer:    caller,
		EventName: eventName,
		BadgeType: badgeType,
		IssuedAt:  l.clock.Now().Unix(),
	}

	recipientKey := recipient.String()
	l.sbtLedger[recipientKey] = append(l.sbtLedger[recipientKey], badge)
	l.nextBadgeID++

	return "SBT minted successfully", nil
}

// AuthorizeMinter grants minting rights to minter. Fails unless caller is
// the ledger admin. Idempotent: authorizing an already-authorized minter
// succeeds without change.
func (l *Ledger) AuthorizeMinter(caller, minter crypto.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !caller.Equal(l.admin) {
		return ErrNotAdmin
	}

	l.authorizedMinters[minter.String()] = true
	return nil
}

// GetDID is a side-effect-free query for owner's profile.
func (l *Ledger) GetDID(owner crypto.PublicKey) (*DIDProfile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	profile, ok := l.didRegistry[owner.String()]
	return profile, ok
}

// GetSBTs is a side-effect-free query returning owner's SBTs in the
// chronological order they were minted. Returns an empty slice, never nil,
// if owner has none.
func (l *Ledger) GetSBTs(owner crypto.PublicKey) []*SBT {
	l.mu.Lock()
	defer l.mu.Unlock()

	badges := l.sbtLedger[owner.String()]
	out := make([]*SBT, len(badges))
	copy(out, badges)
	return out
}

// IsAuthorizedMinter is a side-effect-free query used by callers (e.g. the
// API layer) that need to short-circuit before attempting a mint.
func (l *Ledger) IsAuthorizedMinter(candidate crypto.PublicKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.authorizedMinters[candidate.String()]
}
