package eventdao

import "fmt"

// ErrorCode enumerates the Event DAO's error taxonomy.
type ErrorCode int

const (
	ErrProposalNotFound ErrorCode = 7001
	ErrAlreadyVoted     ErrorCode = 7002
	ErrZeroAmount       ErrorCode = 7003
)

// DAOError is the Event DAO's typed error.
type DAOError struct {
	Code    ErrorCode
	Message string
}

func (e *DAOError) Error() string {
	return fmt.Sprintf("event dao error %d: %s", e.Code, e.Message)
}

func newDAOError(code ErrorCode, message string) *DAOError {
	return &DAOError{Code: code, Message: message}
}

var (
	ErrProposalNotFoundErr = newDAOError(ErrProposalNotFound, "proposal not found")
	ErrAlreadyVotedErr     = newDAOError(ErrAlreadyVoted, "already voted")
	ErrDonateZeroAmount    = newDAOError(ErrZeroAmount, "donation amount must be nonzero")
)
