package ledgerservice

import "errors"

var (
	// ErrInvalidAmount is returned for non-positive escrow or negative payouts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientEscrow means a disbursement asked for more than is held.
	// It is always reported as an invariant failure.
	ErrInsufficientEscrow = errors.New("disbursement exceeds held balance")

	// ErrTransferFailed wraps a transfer the wallet refused or could not settle.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrCompensationFailed means a settled transfer could not be reversed.
	// Funds are out of balance and need manual reconciliation.
	ErrCompensationFailed = errors.New("transfer reversal failed")
)
