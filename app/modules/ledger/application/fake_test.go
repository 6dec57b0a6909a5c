package ledgerservice

import (
	"context"
	"sync"

	"github.com/uptrace/bun"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
	ledgerdb "github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/repositories"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// ------------------------
// Fake Ledger Repository
// ------------------------

// FakeLedgerRepo is a programmable stub for ledgerdb.Repository.
type FakeLedgerRepo struct {
	mu      sync.Mutex
	trace   []string
	entries []ledgerdb.Entry

	InsertEntriesFunc func(ctx context.Context, db bun.IDB, entries []ledgerdb.Entry) error
	BalanceFunc       func(ctx context.Context, db bun.IDB) (roundtypes.Amount, error)
}

func NewFakeLedgerRepo() *FakeLedgerRepo {
	return &FakeLedgerRepo{trace: []string{}}
}

func (f *FakeLedgerRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of repository methods called.
func (f *FakeLedgerRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Entries returns everything inserted so far.
func (f *FakeLedgerRepo) Entries() []ledgerdb.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ledgerdb.Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *FakeLedgerRepo) InsertEntries(ctx context.Context, db bun.IDB, entries []ledgerdb.Entry) error {
	f.record("InsertEntries")
	if f.InsertEntriesFunc != nil {
		if err := f.InsertEntriesFunc(ctx, db, entries); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.entries = append(f.entries, entries...)
	f.mu.Unlock()
	return nil
}

func (f *FakeLedgerRepo) ListByRound(ctx context.Context, db bun.IDB, roundID roundtypes.RoundID) ([]ledgerdb.Entry, error) {
	f.record("ListByRound")
	var out []ledgerdb.Entry
	for _, e := range f.Entries() {
		if e.RoundID == roundID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *FakeLedgerRepo) Balance(ctx context.Context, db bun.IDB) (roundtypes.Amount, error) {
	f.record("Balance")
	if f.BalanceFunc != nil {
		return f.BalanceFunc(ctx, db)
	}
	var balance roundtypes.Amount
	for _, e := range f.Entries() {
		if e.Kind == ledgertypes.EntryPayout {
			balance -= e.Amount
		} else {
			balance += e.Amount
		}
	}
	return balance, nil
}

var _ ledgerdb.Repository = (*FakeLedgerRepo)(nil)

// ------------------------
// Fake Transferer
// ------------------------

// FakeTransferer records transfers and reversals and can be told to fail.
type FakeTransferer struct {
	mu    sync.Mutex
	trace []string

	TransferFunc func(ctx context.Context, t ledgertypes.Transfer) (ledgertypes.Receipt, error)
	ReverseFunc  func(ctx context.Context, r ledgertypes.Receipt) error
}

func NewFakeTransferer() *FakeTransferer {
	return &FakeTransferer{trace: []string{}}
}

func (f *FakeTransferer) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns calls as "Transfer:<recipient>" / "Reverse:<recipient>".
func (f *FakeTransferer) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeTransferer) Transfer(ctx context.Context, t ledgertypes.Transfer) (ledgertypes.Receipt, error) {
	f.record("Transfer:" + t.Recipient.String())
	if f.TransferFunc != nil {
		return f.TransferFunc(ctx, t)
	}
	return ledgertypes.Receipt{Transfer: t}, nil
}

func (f *FakeTransferer) Reverse(ctx context.Context, r ledgertypes.Receipt) error {
	f.record("Reverse:" + r.Transfer.Recipient.String())
	if f.ReverseFunc != nil {
		return f.ReverseFunc(ctx, r)
	}
	return nil
}

var _ Transferer = (*FakeTransferer)(nil)
