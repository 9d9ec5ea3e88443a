package ledger

import (
	"testing"

	"github.com/aegis-protocol/aegis-core/clock"
	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/stretchr/testify/require"
)

func newTestLedger() (*Ledger, crypto.PublicKey) {
	admin := crypto.GeneratePrivateKey().PublicKey()
	return New(admin, clock.New()), admin
}

func TestRegisterDIDOverwritesOnReregistration(t *testing.T) {
	l, _ := newTestLedger()
	owner := crypto.GeneratePrivateKey().PublicKey()

	l.RegisterDID(owner, "Red Cross Local", "ngo", "ops@example.org")
	first, ok := l.GetDID(owner)
	require.True(t, ok)
	require.Equal(t, "Red Cross Local", first.Name)

	l.RegisterDID(owner, "Red Cross Local Chapter 2", "ngo", "ops2@example.org")
	second, ok := l.GetDID(owner)
	require.True(t, ok)
	require.Equal(t, "Red Cross Local Chapter 2", second.Name)
}

func TestGetDIDAbsentReturnsFalse(t *testing.T) {
	l, _ := newTestLedger()
	_, ok := l.GetDID(crypto.GeneratePrivateKey().PublicKey())
	require.False(t, ok)
}

func TestMintSBTRequiresAuthorization(t *testing.T) {
	l, _ := newTestLedger()
	minter := crypto.GeneratePrivateKey().PublicKey()
	recipient := crypto.GeneratePrivateKey().PublicKey()

	_, err := l.MintSBT(minter, recipient, "Earthquake", "Donor & Participant")
	require.Error(t, err)

	var ledgerErr *LedgerError
	require.ErrorAs(t, err, &ledgerErr)
	require.Equal(t, ErrUnauthorized, ledgerErr.Code)
}

func TestAuthorizeMinterRequiresAdmin(t *testing.T) {
	l, admin := newTestLedger()
	notAdmin := crypto.GeneratePrivateKey().PublicKey()
	minter := crypto.GeneratePrivateKey().PublicKey()

	err := l.AuthorizeMinter(notAdmin, minter)
	require.Error(t, err)

	err = l.AuthorizeMinter(admin, minter)
	require.NoError(t, err)
	require.True(t, l.IsAuthorizedMinter(minter))
}

func TestAuthorizeMinterIdempotent(t *testing.T) {
	l, admin := newTestLedger()
	minter := crypto.GeneratePrivateKey().PublicKey()

	require.NoError(t, l.AuthorizeMinter(admin, minter))
	require.NoError(t, l.AuthorizeMinter(admin, minter))
	require.True(t, l.IsAuthorizedMinter(minter))
}

func TestMintSBTAppendsInOrderWithMonotonicBadgeIDs(t *testing.T) {
	l, admin := newTestLedger()
	minter := crypto.GeneratePrivateKey().PublicKey()
	recipient := crypto.GeneratePrivateKey().PublicKey()
	require.NoError(t, l.AuthorizeMinter(admin, minter))

	for i := 0; i < 3; i++ {
		_, err := l.MintSBT(minter, recipient, "Flood", "Donor & Participant")
		require.NoError(t, err)
	}

	badges := l.GetSBTs(recipient)
	require.Len(t, badges, 3)
	for i, b := range badges {
		require.Equal(t, uint64(i), b.BadgeID)
	}
}

func TestGetSBTsEmptyForUnknownOwner(t *testing.T) {
	l, _ := newTestLedger()
	badges := l.GetSBTs(crypto.GeneratePrivateKey().PublicKey())
	require.Empty(t, badges)
	require.NotNil(t, badges)
}

func TestSBTsNeverMutateAfterInsertion(t *testing.T) {
	l, admin := newTestLedger()
	minter := crypto.GeneratePrivateKey().PublicKey()
	recipient := crypto.GeneratePrivateKey().PublicKey()
	require.NoError(t, l.AuthorizeMinter(admin, minter))

	_, err := l.MintSBT(minter, recipient, "Flood", "Donor & Participant")
	require.NoError(t, err)

	first := l.GetSBTs(recipient)
	firstCopy := *first[0]

	_, err = l.MintSBT(minter, recipient, "Flood", "Donor & Participant")
	require.NoError(t, err)

	again := l.GetSBTs(recipient)
	require.Equal(t, firstCopy, *again[0])
}
