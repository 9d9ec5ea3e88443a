package vault

import (
	"testing"

	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/event"
	"github.com/aegis-protocol/aegis-core/types"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	v        *Vault
	admin    crypto.PublicKey
	initial  crypto.PublicKey
	factory  crypto.PublicKey
}

func newFixture() fixture {
	admin := crypto.GeneratePrivateKey().PublicKey()
	initial := crypto.GeneratePrivateKey().PublicKey()
	factory := crypto.GeneratePrivateKey().PublicKey()
	return fixture{v: New(admin, initial, factory), admin: admin, initial: initial, factory: factory}
}

func TestFundVaultRejectsZeroAmount(t *testing.T) {
	f := newFixture()
	err := f.v.FundVault(f.initial, 0)
	require.ErrorIs(t, err, ErrFundZeroAmount)
}

func TestFundVaultRejectsUnauthorizedFunder(t *testing.T) {
	f := newFixture()
	stranger := crypto.GeneratePrivateKey().PublicKey()
	err := f.v.FundVault(stranger, 100)
	require.ErrorIs(t, err, ErrNotAuthorizedFunder)
}

func TestAddFunderRequiresAdmin(t *testing.T) {
	f := newFixture()
	notAdmin := crypto.GeneratePrivateKey().PublicKey()
	funder := crypto.GeneratePrivateKey().PublicKey()

	err := f.v.AddFunder(notAdmin, funder)
	require.ErrorIs(t, err, ErrNotAdmin)

	require.NoError(t, f.v.AddFunder(f.admin, funder))
	require.NoError(t, f.v.FundVault(funder, 500))
	require.EqualValues(t, 500, f.v.GetTotalLiquidity())
}

func TestAddFunderIdempotent(t *testing.T) {
	f := newFixture()
	funder := crypto.GeneratePrivateKey().PublicKey()

	require.NoError(t, f.v.AddFunder(f.admin, funder))
	require.NoError(t, f.v.AddFunder(f.admin, funder))

	funders := f.v.GetAuthorizedFunders()
	count := 0
	for _, fn := range funders {
		if fn.Equal(funder) {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestReleaseInitialFundingRequiresAuthorizedFactory(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.v.FundVault(f.initial, 200_000_000))

	stranger := crypto.GeneratePrivateKey().PublicKey()
	_, err := f.v.ReleaseInitialFunding(stranger, types.Hash{}, event.ValidatedEvent{Severity: event.SeverityTinggi})
	require.ErrorIs(t, err, ErrNotAuthorizedFactory)
}

func TestDeterminePayoutTable(t *testing.T) {
	require.EqualValues(t, 100_000_000, event.DeterminePayout(event.SeverityTinggi))
	require.EqualValues(t, 50_000_000, event.DeterminePayout(event.SeveritySedang))
	require.EqualValues(t, 10_000_000, event.DeterminePayout(event.SeverityRendah))
	require.EqualValues(t, 0, event.DeterminePayout("None"))
	require.EqualValues(t, 0, event.DeterminePayout(""))
}

func TestReleaseInitialFundingUnknownSeverityIsNoOpSuccess(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.v.FundVault(f.initial, 200_000_000))

	msg, err := f.v.ReleaseInitialFunding(f.factory, types.Hash{}, event.ValidatedEvent{Severity: "None"})
	require.NoError(t, err)
	require.Contains(t, msg, "no payout")
	require.EqualValues(t, 200_000_000, f.v.GetTotalLiquidity())
}

func TestReleaseInitialFundingInsufficientLiquidity(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.v.FundVault(f.initial, 10_000_000))

	_, err := f.v.ReleaseInitialFunding(f.factory, types.Hash{}, event.ValidatedEvent{Severity: event.SeveritySedang})
	require.ErrorIs(t, err, ErrLiquidityTooLow)
	require.EqualValues(t, 10_000_000, f.v.GetTotalLiquidity())
}

func TestReleaseInitialFundingDecrementsExactly(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.v.FundVault(f.initial, 200_000_000))

	_, err := f.v.ReleaseInitialFunding(f.factory, types.Hash{}, event.ValidatedEvent{Severity: event.SeverityTinggi})
	require.NoError(t, err)
	require.EqualValues(t, 100_000_000, f.v.GetTotalLiquidity())
}

func TestAdminCannotDepositUnlessAlsoFunder(t *testing.T) {
	f := newFixture()
	err := f.v.FundVault(f.admin, 100)
	require.ErrorIs(t, err, ErrNotAuthorizedFunder)
}
