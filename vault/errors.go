package vault

import "fmt"

// ErrorCode enumerates the vault's error taxonomy.
type ErrorCode int

const (
	ErrUnauthorized          ErrorCode = 6001
	ErrZeroAmount            ErrorCode = 6002
	ErrInsufficientLiquidity ErrorCode = 6003
)

// VaultError is the vault's typed error.
type VaultError struct {
	Code    ErrorCode
	Message string
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("vault error %d: %s", e.Code, e.Message)
}

func newVaultError(code ErrorCode, message string) *VaultError {
	return &VaultError{Code: code, Message: message}
}

var (
	ErrNotAdmin             = newVaultError(ErrUnauthorized, "caller is not the vault admin")
	ErrNotAuthorizedFunder  = newVaultError(ErrUnauthorized, "caller is not an authorized funder")
	ErrNotAuthorizedFactory = newVaultError(ErrUnauthorized, "caller is not the authorized factory")
	ErrFundZeroAmount       = newVaultError(ErrZeroAmount, "fund amount must be nonzero")
	ErrLiquidityTooLow      = newVaultError(ErrInsufficientLiquidity, "requested payout exceeds available liquidity")
)
