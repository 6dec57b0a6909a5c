package roundservice

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	rounddb "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories"
)

// ------------------------
// Fake Round Repository
// ------------------------

// FakeRoundRepo is an in-memory history with programmable failures.
type FakeRoundRepo struct {
	mu     sync.Mutex
	trace  []string
	rounds map[roundtypes.RoundID]roundtypes.ResolvedRound

	AppendFunc func(ctx context.Context, db bun.IDB, round roundtypes.ResolvedRound) error
	TotalsFunc func(ctx context.Context, db bun.IDB) (rounddb.Totals, error)
}

func NewFakeRoundRepo() *FakeRoundRepo {
	return &FakeRoundRepo{
		trace:  []string{},
		rounds: make(map[roundtypes.RoundID]roundtypes.ResolvedRound),
	}
}

func (f *FakeRoundRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of repository methods called.
func (f *FakeRoundRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Len is the number of stored rounds.
func (f *FakeRoundRepo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rounds)
}

func (f *FakeRoundRepo) Append(ctx context.Context, db bun.IDB, round roundtypes.ResolvedRound) error {
	f.record("Append")
	if f.AppendFunc != nil {
		if err := f.AppendFunc(ctx, db, round); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rounds[round.ID]; ok {
		return fmt.Errorf("%w: %d", rounddb.ErrDuplicateRound, round.ID)
	}
	f.rounds[round.ID] = round
	return nil
}

func (f *FakeRoundRepo) Get(ctx context.Context, db bun.IDB, id roundtypes.RoundID) (roundtypes.ResolvedRound, error) {
	f.record("Get")
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[id]
	if !ok {
		return roundtypes.ResolvedRound{}, rounddb.ErrNotFound
	}
	return r, nil
}

func (f *FakeRoundRepo) Totals(ctx context.Context, db bun.IDB) (rounddb.Totals, error) {
	f.record("Totals")
	if f.TotalsFunc != nil {
		return f.TotalsFunc(ctx, db)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var t rounddb.Totals
	for id, r := range f.rounds {
		t.Resolved++
		t.Fees += r.TotalPool
		if id > t.LastRound {
			t.LastRound = id
		}
	}
	return t, nil
}

var _ rounddb.Repository = (*FakeRoundRepo)(nil)

// ------------------------
// Fake Ledger
// ------------------------

// FakeLedger tracks held funds and records every call.
type FakeLedger struct {
	mu       sync.Mutex
	trace    []string
	held     roundtypes.Amount
	paid     map[roundtypes.Identity]roundtypes.Amount
	deposits []ledgertypes.Deposit

	EscrowFunc   func(ctx context.Context, roundID roundtypes.RoundID, from roundtypes.Identity, amount roundtypes.Amount) error
	DisburseFunc func(ctx context.Context, roundID roundtypes.RoundID, payouts []roundtypes.Payout) (ledgertypes.Settlement, error)
	RevertFunc   func(ctx context.Context, settlement ledgertypes.Settlement) error
	RestoreFunc  func(ctx context.Context) (roundtypes.Amount, error)
	DepositsFunc func(ctx context.Context, roundID roundtypes.RoundID) ([]ledgertypes.Deposit, error)
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		trace: []string{},
		paid:  make(map[roundtypes.Identity]roundtypes.Amount),
	}
}

func (f *FakeLedger) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of ledger methods called.
func (f *FakeLedger) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Held is the escrowed amount not yet paid out.
func (f *FakeLedger) Held() roundtypes.Amount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held
}

// Paid is the total disbursed to identity.
func (f *FakeLedger) Paid(identity roundtypes.Identity) roundtypes.Amount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paid[identity]
}

func (f *FakeLedger) Escrow(ctx context.Context, roundID roundtypes.RoundID, from roundtypes.Identity, amount roundtypes.Amount) error {
	f.record("Escrow")
	if f.EscrowFunc != nil {
		if err := f.EscrowFunc(ctx, roundID, from, amount); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held += amount
	f.deposits = append(f.deposits, ledgertypes.Deposit{RoundID: roundID, From: from, Amount: amount})
	return nil
}

func (f *FakeLedger) Disburse(ctx context.Context, roundID roundtypes.RoundID, payouts []roundtypes.Payout) (ledgertypes.Settlement, error) {
	f.record("Disburse")
	if f.DisburseFunc != nil {
		return f.DisburseFunc(ctx, roundID, payouts)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	settlement := ledgertypes.Settlement{RoundID: roundID}
	for _, p := range payouts {
		f.held -= p.Amount
		f.paid[p.Recipient] += p.Amount
		settlement.Receipts = append(settlement.Receipts, ledgertypes.Receipt{
			Transfer: ledgertypes.Transfer{RoundID: roundID, Recipient: p.Recipient, Amount: p.Amount, Kind: p.Kind},
		})
	}
	return settlement, nil
}

func (f *FakeLedger) Revert(ctx context.Context, settlement ledgertypes.Settlement) error {
	f.record("Revert")
	if f.RevertFunc != nil {
		return f.RevertFunc(ctx, settlement)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range settlement.Receipts {
		f.held += r.Transfer.Amount
		f.paid[r.Transfer.Recipient] -= r.Transfer.Amount
	}
	return nil
}

func (f *FakeLedger) Restore(ctx context.Context) (roundtypes.Amount, error) {
	f.record("Restore")
	if f.RestoreFunc != nil {
		return f.RestoreFunc(ctx)
	}
	return f.Held(), nil
}

func (f *FakeLedger) Deposits(ctx context.Context, roundID roundtypes.RoundID) ([]ledgertypes.Deposit, error) {
	f.record("Deposits")
	if f.DepositsFunc != nil {
		return f.DepositsFunc(ctx, roundID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledgertypes.Deposit
	for _, d := range f.deposits {
		if d.RoundID == roundID {
			out = append(out, d)
		}
	}
	return out, nil
}

var _ Ledger = (*FakeLedger)(nil)

// ------------------------
// Fake Entropy
// ------------------------

// FakeEntropy returns scripted values per identity, defaulting to 5.
type FakeEntropy struct {
	mu       sync.Mutex
	values   map[roundtypes.Identity]roundtypes.DrawValue
	contexts []roundtypes.DrawContext

	DrawFunc func(ctx context.Context, dc roundtypes.DrawContext) (roundtypes.DrawValue, error)
}

func NewFakeEntropy() *FakeEntropy {
	return &FakeEntropy{values: make(map[roundtypes.Identity]roundtypes.DrawValue)}
}

// Set scripts the value identity will draw.
func (f *FakeEntropy) Set(identity roundtypes.Identity, v roundtypes.DrawValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[identity] = v
}

// Contexts returns every draw context seen.
func (f *FakeEntropy) Contexts() []roundtypes.DrawContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]roundtypes.DrawContext, len(f.contexts))
	copy(out, f.contexts)
	return out
}

func (f *FakeEntropy) Draw(ctx context.Context, dc roundtypes.DrawContext) (roundtypes.DrawValue, error) {
	f.mu.Lock()
	f.contexts = append(f.contexts, dc)
	v, ok := f.values[dc.Identity]
	f.mu.Unlock()

	if f.DrawFunc != nil {
		return f.DrawFunc(ctx, dc)
	}
	if !ok {
		v = 5
	}
	return v, nil
}

var _ EntropySource = (*FakeEntropy)(nil)

// ------------------------
// Fake Notifier
// ------------------------

// FakeNotifier records published topics in order.
type FakeNotifier struct {
	mu       sync.Mutex
	topics   []string
	payloads []any

	NotifyFunc func(ctx context.Context, topic string, payload any) error
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{topics: []string{}}
}

// Topics returns every topic published so far.
func (f *FakeNotifier) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.topics))
	copy(out, f.topics)
	return out
}

// Payloads returns every payload published so far.
func (f *FakeNotifier) Payloads() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.payloads))
	copy(out, f.payloads)
	return out
}

func (f *FakeNotifier) Notify(ctx context.Context, topic string, payload any) error {
	f.mu.Lock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	if f.NotifyFunc != nil {
		return f.NotifyFunc(ctx, topic, payload)
	}
	return nil
}

var _ Notifier = (*FakeNotifier)(nil)
