package factory

import (
	"errors"
	"testing"

	"github.com/aegis-protocol/aegis-core/clock"
	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/event"
	"github.com/aegis-protocol/aegis-core/types"
	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	released  []types.Hash
	failEvery bool
}

func (v *fakeVault) ReleaseInitialFunding(caller crypto.PublicKey, daoID types.Hash, ev event.ValidatedEvent) (string, error) {
	if v.failEvery {
		return "", errInsufficientLiquidity
	}
	v.released = append(v.released, daoID)
	return "released", nil
}

var errInsufficientLiquidity = errors.New("insufficient liquidity")

type fakeMinter struct{}

func (fakeMinter) MintSBT(caller, recipient crypto.PublicKey, eventName, badgeType string) (string, error) {
	return "SBT minted successfully", nil
}

func newTestFactory(vault *fakeVault) (*Factory, crypto.PublicKey, crypto.PublicKey) {
	self := crypto.GeneratePrivateKey().PublicKey()
	bridge := crypto.GeneratePrivateKey().PublicKey()
	f := New(self, bridge, vault, fakeMinter{}, clock.New())
	return f, self, bridge
}

func TestDeclareEventRejectsUnauthorizedCaller(t *testing.T) {
	f, _, _ := newTestFactory(&fakeVault{})
	stranger := crypto.GeneratePrivateKey().PublicKey()

	_, err := f.DeclareEvent(stranger, event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi})
	require.ErrorIs(t, err, ErrNotAuthorizedBridge)
	require.Empty(t, f.ListDAOs())
}

func TestDeclareEventHappyPath(t *testing.T) {
	vault := &fakeVault{}
	f, _, bridge := newTestFactory(vault)

	ev := event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi, DetailsJSON: "{}"}
	daoID, err := f.DeclareEvent(bridge, ev)
	require.NoError(t, err)
	require.False(t, daoID.IsZero())
	require.Len(t, vault.released, 1)
	require.Equal(t, daoID, vault.released[0])

	dao, ok := f.GetDAO(daoID)
	require.True(t, ok)
	stored, ok := dao.GetEventDetails()
	require.True(t, ok)
	require.Equal(t, ev, stored)
}

func TestDeclareEventLeavesPartialStateOnVaultFailure(t *testing.T) {
	vault := &fakeVault{failEvery: true}
	f, _, bridge := newTestFactory(vault)

	_, err := f.DeclareEvent(bridge, event.ValidatedEvent{EventType: "Flood", Severity: event.SeveritySedang})
	require.Error(t, err)

	// The DAO was still registered even though the caller never received its
	// id: partial state is the documented outcome of a non-atomic
	// Factory-to-Vault call.
	require.Len(t, f.ListDAOs(), 1)
}

func TestReinitializingAnExistingDAODirectlyIsRefused(t *testing.T) {
	vault := &fakeVault{}
	f, _, bridge := newTestFactory(vault)

	ev1 := event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi}
	daoID, err := f.DeclareEvent(bridge, ev1)
	require.NoError(t, err)

	dao, ok := f.GetDAO(daoID)
	require.True(t, ok)

	ev2 := event.ValidatedEvent{EventType: "Flood", Severity: event.SeverityRendah}
	msg := dao.Initialize(crypto.GeneratePrivateKey().PublicKey(), ev2)
	require.Equal(t, "already initialized", msg)

	stored, ok := dao.GetEventDetails()
	require.True(t, ok)
	require.Equal(t, ev1, stored)
}

func TestEachDeclareEventProducesADistinctDAOID(t *testing.T) {
	vault := &fakeVault{}
	f, _, bridge := newTestFactory(vault)

	id1, err := f.DeclareEvent(bridge, event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi})
	require.NoError(t, err)
	id2, err := f.DeclareEvent(bridge, event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi})
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
	require.Len(t, f.ListDAOs(), 2)
}
