// Package factory implements the Event Factory: the single entry point that
// turns a validated disaster signal into a running, initially-funded Event
// DAO. It depends on both the Event DAO and the Insurance Vault (spec §2).
package factory

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/aegis-protocol/aegis-core/clock"
	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/event"
	"github.com/aegis-protocol/aegis-core/eventdao"
	"github.com/aegis-protocol/aegis-core/types"
)

// VaultReleaser is the Insurance Vault surface the Factory consumes.
// Declared as an interface, mirroring eventdao.SBTMinter, so the Factory
// can be exercised against a fake vault in tests.
type VaultReleaser interface {
	ReleaseInitialFunding(caller crypto.PublicKey, daoID types.Hash, ev event.ValidatedEvent) (string, error)
}

// Factory is the Event Factory component.
type Factory struct {
	mu sync.Mutex

	self             crypto.PublicKey
	authorizedBridge crypto.PublicKey
	vault            VaultReleaser
	minter           eventdao.SBTMinter
	clock            clock.Clock

	daos    map[string]*eventdao.DAO
	nextSeq uint64
}

// New constructs a Factory. self is the Factory's own identity, presented as
// factory_principal to every DAO it creates. authorizedBridge is the only
// identity permitted to call DeclareEvent, per the hardening spec.md §4.4
// calls for.
func New(self, authorizedBridge crypto.PublicKey, vault VaultReleaser, minter eventdao.SBTMinter, c clock.Clock) *Factory {
	return &Factory{
		self:             self,
		authorizedBridge: authorizedBridge,
		vault:            vault,
		minter:           minter,
		clock:            c,
		daos:             make(map[string]*eventdao.DAO),
	}
}

// DeclareEvent implements the five-step control flow: authorize, initialize
// a new DAO, retrieve its identity, request initial funding, and report the
// combined result. The sequence is not atomic across components — a Vault
// failure after DAO initialization leaves an initialized but unfunded DAO
// registered and reachable via GetDAO; this is a deliberate, documented
// partial-state outcome (SPEC_FULL.md §9 item 3), not a bug.
func (f *Factory) DeclareEvent(caller crypto.PublicKey, ev event.ValidatedEvent) (types.Hash, error) {
	f.mu.Lock()
	if !caller.Equal(f.authorizedBridge) {
		f.mu.Unlock()
		return types.Hash{}, ErrNotAuthorizedBridge
	}

	daoID := f.nextDAOIDLocked(ev)
	dao := eventdao.New(daoID, f.minter)
	dao.Initialize(f.self, ev)
	f.daos[daoID.String()] = dao
	f.mu.Unlock()

	// The Vault call is a suspension point (spec §5): the Factory holds no
	// lock while it runs, and the Vault re-checks its own invariants under
	// its own lock.
	if _, err := f.vault.ReleaseInitialFunding(f.self, daoID, ev); err != nil {
		return types.Hash{}, err
	}

	return daoID, nil
}

func (f *Factory) nextDAOIDLocked(ev event.ValidatedEvent) types.Hash {
	seq := f.nextSeq
	f.nextSeq++

	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)

	h := sha256.New()
	h.Write(seqBytes[:])
	h.Write([]byte(ev.EventType))
	h.Write([]byte(ev.Severity))
	var tsBytes [8]byte
	binary.BigEndian.PutUint64(tsBytes[:], uint64(f.clock.Now().UnixNano()))
	h.Write(tsBytes[:])

	return types.HashFromBytes(h.Sum(nil))
}

// GetDAO is a side-effect-free query returning the DAO registered under id.
func (f *Factory) GetDAO(id types.Hash) (*eventdao.DAO, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dao, ok := f.daos[id.String()]
	return dao, ok
}

// ListDAOs returns the stable identities of every DAO this Factory has
// created, in no particular order.
func (f *Factory) ListDAOs() []types.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]types.Hash, 0, len(f.daos))
	for _, dao := range f.daos {
		out = append(out, dao.ID())
	}
	return out
}
