// Package wallet implements the ledger's outgoing transfer port.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// ErrUnknownReceipt is returned when reversing a receipt the wallet never issued.
var ErrUnknownReceipt = errors.New("unknown receipt")

// Hook runs before a transfer settles. Returning an error refuses the transfer.
type Hook func(ctx context.Context, transfer ledgertypes.Transfer) error

// Memory keeps balances in process. It backs local runs and tests.
type Memory struct {
	mu       sync.Mutex
	balances map[roundtypes.Identity]roundtypes.Amount
	receipts map[uuid.UUID]ledgertypes.Receipt
	log      []ledgertypes.Transfer
	hook     Hook
	clock    func() time.Time
}

// NewMemory returns an empty in-process wallet.
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[roundtypes.Identity]roundtypes.Amount),
		receipts: make(map[uuid.UUID]ledgertypes.Receipt),
		clock:    time.Now,
	}
}

// SetHook installs h. The hook runs outside the wallet lock so it may call
// back into the round engine.
func (m *Memory) SetHook(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = h
}

// Transfer credits the recipient.
func (m *Memory) Transfer(ctx context.Context, transfer ledgertypes.Transfer) (ledgertypes.Receipt, error) {
	m.mu.Lock()
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, transfer); err != nil {
			return ledgertypes.Receipt{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return ledgertypes.Receipt{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	receipt := ledgertypes.Receipt{ID: uuid.New(), Transfer: transfer, SettledAt: m.clock()}
	m.balances[transfer.Recipient] += transfer.Amount
	m.receipts[receipt.ID] = receipt
	m.log = append(m.log, transfer)
	return receipt, nil
}

// Reverse debits the recipient of a previously issued receipt.
func (m *Memory) Reverse(_ context.Context, receipt ledgertypes.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	issued, ok := m.receipts[receipt.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReceipt, receipt.ID)
	}
	m.balances[issued.Transfer.Recipient] -= issued.Transfer.Amount
	delete(m.receipts, receipt.ID)
	return nil
}

// Balance returns what identity has received.
func (m *Memory) Balance(identity roundtypes.Identity) roundtypes.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[identity]
}

// Transfers returns every settled transfer in order, including reversed ones.
func (m *Memory) Transfers() []ledgertypes.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledgertypes.Transfer, len(m.log))
	copy(out, m.log)
	return out
}
