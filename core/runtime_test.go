package core

import (
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/aegis-protocol/aegis-core/clock"
	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/event"
	"github.com/aegis-protocol/aegis-core/eventaudit"
	"github.com/aegis-protocol/aegis-core/types"
)

type fakePinner struct {
	pinned []eventaudit.EventRecord
}

func (p *fakePinner) PinEventRecord(rec eventaudit.EventRecord, now time.Time) (types.Hash, error) {
	p.pinned = append(p.pinned, rec)
	return types.HashFromBytes([]byte(rec.EventType)), nil
}

func newTestRuntime() (*Runtime, Config) {
	cfg := Config{
		LedgerAdmin:       crypto.GeneratePrivateKey().PublicKey(),
		VaultAdmin:        crypto.GeneratePrivateKey().PublicKey(),
		InitialFunder:     crypto.GeneratePrivateKey().PublicKey(),
		AuthorizedFactory: crypto.GeneratePrivateKey().PublicKey(),
		AuthorizedBridge:  crypto.GeneratePrivateKey().PublicKey(),
		Clock:             clock.New(),
		Logger:            log.NewNopLogger(),
	}
	cfg.FactoryIdentity = cfg.AuthorizedFactory
	return NewRuntime(cfg), cfg
}

func TestRuntimeDeclareEventWiresFactoryAndVault(t *testing.T) {
	r, cfg := newTestRuntime()
	require.NoError(t, r.Vault.FundVault(cfg.InitialFunder, 200_000_000))

	daoID, err := r.DeclareEvent(cfg.AuthorizedBridge, event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi})
	require.NoError(t, err)
	require.EqualValues(t, 100_000_000, r.Vault.GetTotalLiquidity())

	dao, ok := r.GetDAO(daoID)
	require.True(t, ok)
	require.NotNil(t, dao)
}

func TestRuntimeAuditTrailRecordsDeclareAndVote(t *testing.T) {
	r, cfg := newTestRuntime()
	require.NoError(t, r.Vault.FundVault(cfg.InitialFunder, 200_000_000))

	daoID, err := r.DeclareEvent(cfg.AuthorizedBridge, event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi})
	require.NoError(t, err)

	dao, ok := r.GetDAO(daoID)
	require.True(t, ok)
	dao.SubmitProposal(crypto.GeneratePrivateKey().PublicKey(), "Tents", "100 tents", 1_000_000, crypto.GeneratePrivateKey().PublicKey())

	voter := crypto.GeneratePrivateKey().PublicKey()
	result, ok := r.DonateAndVote(voter, daoID, 10, 0, true)
	require.True(t, ok)
	require.Contains(t, result, "vote cast successfully")

	trail := r.AuditTrail()
	require.Len(t, trail, 2)
	require.Equal(t, "declare_event", trail[0].Operation)
	require.Equal(t, "donate_and_vote", trail[1].Operation)
	for _, rec := range trail {
		require.False(t, rec.Hash.IsZero())
	}
}

func TestRuntimeDonateAndVoteUnknownDAOReturnsFalse(t *testing.T) {
	r, _ := newTestRuntime()
	_, ok := r.DonateAndVote(crypto.GeneratePrivateKey().PublicKey(), [32]byte{}, 10, 0, true)
	require.False(t, ok)
}

func TestRuntimePinsEventRecordWhenPinnerConfigured(t *testing.T) {
	cfg := Config{
		LedgerAdmin:       crypto.GeneratePrivateKey().PublicKey(),
		VaultAdmin:        crypto.GeneratePrivateKey().PublicKey(),
		InitialFunder:     crypto.GeneratePrivateKey().PublicKey(),
		AuthorizedFactory: crypto.GeneratePrivateKey().PublicKey(),
		AuthorizedBridge:  crypto.GeneratePrivateKey().PublicKey(),
		Clock:             clock.New(),
		Logger:            log.NewNopLogger(),
	}
	cfg.FactoryIdentity = cfg.AuthorizedFactory
	pinner := &fakePinner{}
	cfg.Pinner = pinner

	r := NewRuntime(cfg)
	require.NoError(t, r.Vault.FundVault(cfg.InitialFunder, 200_000_000))

	_, err := r.DeclareEvent(cfg.AuthorizedBridge, event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi, DetailsJSON: "{}"})
	require.NoError(t, err)

	require.Len(t, pinner.pinned, 1)
	require.Equal(t, "Earthquake", pinner.pinned[0].EventType)
}

func TestRuntimeSkipsPinningWhenNoPinnerConfigured(t *testing.T) {
	r, cfg := newTestRuntime()
	require.NoError(t, r.Vault.FundVault(cfg.InitialFunder, 200_000_000))

	_, err := r.DeclareEvent(cfg.AuthorizedBridge, event.ValidatedEvent{EventType: "Earthquake", Severity: event.SeverityTinggi})
	require.NoError(t, err)
}
