package roundhandlers

import (
	"context"
	"errors"
	"sync"

	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
	roundservice "github.com/Black-And-White-Club/spinboard/app/modules/round/application"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// FakeRoundService is a programmable roundservice.Service.
type FakeRoundService struct {
	mu    sync.Mutex
	trace []string

	JoinFunc         func(ctx context.Context, req roundservice.JoinRequest) (roundservice.JoinResult, error)
	DrawFunc         func(ctx context.Context, req roundservice.DrawRequest) (roundservice.DrawResult, error)
	ForceResolveFunc func(ctx context.Context, req roundservice.ForceResolveRequest) (roundservice.ResolveResult, error)
}

func NewFakeRoundService() *FakeRoundService {
	return &FakeRoundService{trace: []string{}}
}

func (f *FakeRoundService) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of service methods called.
func (f *FakeRoundService) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRoundService) Join(ctx context.Context, req roundservice.JoinRequest) (roundservice.JoinResult, error) {
	f.record("Join")
	if f.JoinFunc != nil {
		return f.JoinFunc(ctx, req)
	}
	return roundservice.JoinResult{}, nil
}

func (f *FakeRoundService) Draw(ctx context.Context, req roundservice.DrawRequest) (roundservice.DrawResult, error) {
	f.record("Draw")
	if f.DrawFunc != nil {
		return f.DrawFunc(ctx, req)
	}
	return roundservice.DrawResult{}, nil
}

func (f *FakeRoundService) ForceResolve(ctx context.Context, req roundservice.ForceResolveRequest) (roundservice.ResolveResult, error) {
	f.record("ForceResolve")
	if f.ForceResolveFunc != nil {
		return f.ForceResolveFunc(ctx, req)
	}
	return roundservice.ResolveResult{}, nil
}

func (f *FakeRoundService) CurrentRound(ctx context.Context) roundtypes.RoundSnapshot {
	f.record("CurrentRound")
	return roundtypes.RoundSnapshot{}
}

func (f *FakeRoundService) PlayerInfo(ctx context.Context, identity roundtypes.Identity) roundtypes.PlayerInfo {
	f.record("PlayerInfo")
	return roundtypes.PlayerInfo{Identity: identity}
}

func (f *FakeRoundService) Stats(ctx context.Context) roundtypes.Stats {
	f.record("Stats")
	return roundtypes.Stats{}
}

func (f *FakeRoundService) GetRound(ctx context.Context, id roundtypes.RoundID) (roundservice.ResolveResult, error) {
	f.record("GetRound")
	return roundservice.ResolveResult{}, nil
}

func (f *FakeRoundService) RoundPlayers(ctx context.Context, id roundtypes.RoundID) (roundservice.PlayersResult, error) {
	f.record("RoundPlayers")
	return roundservice.PlayersResult{}, nil
}

var _ roundservice.Service = (*FakeRoundService)(nil)

// ------------------------
// Fake Token Validator
// ------------------------

var errUnknownToken = errors.New("unknown token")

// FakeTokenValidator accepts the tokens it was given claims for.
type FakeTokenValidator struct {
	claims map[string]*authdomain.Claims
}

func NewFakeTokenValidator() *FakeTokenValidator {
	return &FakeTokenValidator{claims: make(map[string]*authdomain.Claims)}
}

// Issue registers token as belonging to identity with role.
func (f *FakeTokenValidator) Issue(token, identity string, role authdomain.Role) {
	f.claims[token] = &authdomain.Claims{Identity: identity, Role: role}
}

func (f *FakeTokenValidator) ValidateToken(_ context.Context, token string) (*authdomain.Claims, error) {
	claims, ok := f.claims[token]
	if !ok {
		return nil, errUnknownToken
	}
	return claims, nil
}

var _ TokenValidator = (*FakeTokenValidator)(nil)
