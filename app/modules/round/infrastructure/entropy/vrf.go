package entropy

import (
	"context"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/proof/dleq"
	"go.dedis.ch/kyber/v4/suites"
	"golang.org/x/crypto/sha3"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// ErrBadProof is returned when a VRF proof does not verify.
var ErrBadProof = errors.New("vrf proof does not verify")

// Proof lets anyone holding the public key check a VRF draw.
type Proof struct {
	Gamma kyber.Point
	DLEQ  *dleq.Proof
}

// VRFSource is a verifiable draw source over Ed25519. The draw is derived
// from gamma = x*H(ctx), and the DLEQ proof shows gamma used the same x as
// the published key X = x*G.
type VRFSource struct {
	suite  suites.Suite
	secret kyber.Scalar
	public kyber.Point
}

// NewVRFSource derives the key pair from seed.
func NewVRFSource(seed []byte) (*VRFSource, error) {
	if len(seed) == 0 {
		return nil, ErrNoSecret
	}
	suite := suites.MustFind("Ed25519")
	secret := suite.Scalar().Pick(suite.XOF(seed))
	return &VRFSource{
		suite:  suite,
		secret: secret,
		public: suite.Point().Mul(secret, nil),
	}, nil
}

// PublicKey is X = x*G.
func (v *VRFSource) PublicKey() kyber.Point { return v.public }

// Draw returns a value in [1, BoardRange].
func (v *VRFSource) Draw(ctx context.Context, dc roundtypes.DrawContext) (roundtypes.DrawValue, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	value, _, err := v.Prove(dc)
	return value, err
}

// Prove returns the draw for dc together with its proof.
func (v *VRFSource) Prove(dc roundtypes.DrawContext) (roundtypes.DrawValue, Proof, error) {
	h := hashToPoint(v.suite, dc)
	p, _, gamma, err := dleq.NewDLEQProof(v.suite, v.suite.Point().Base(), h, v.secret)
	if err != nil {
		return 0, Proof{}, fmt.Errorf("build dleq proof: %w", err)
	}
	value, err := valueFromGamma(gamma)
	if err != nil {
		return 0, Proof{}, err
	}
	return value, Proof{Gamma: gamma, DLEQ: p}, nil
}

// Verify checks that value is the draw public's owner produced for dc.
func Verify(public kyber.Point, dc roundtypes.DrawContext, value roundtypes.DrawValue, proof Proof) error {
	if proof.Gamma == nil || proof.DLEQ == nil {
		return ErrBadProof
	}
	suite := suites.MustFind("Ed25519")
	h := hashToPoint(suite, dc)
	if err := proof.DLEQ.Verify(suite, suite.Point().Base(), h, public, proof.Gamma); err != nil {
		return fmt.Errorf("%w: %v", ErrBadProof, err)
	}
	expected, err := valueFromGamma(proof.Gamma)
	if err != nil {
		return err
	}
	if expected != value {
		return fmt.Errorf("%w: value %d does not match proof", ErrBadProof, value)
	}
	return nil
}

func hashToPoint(suite suites.Suite, dc roundtypes.DrawContext) kyber.Point {
	return suite.Point().Pick(suite.XOF(encodeContext(dc)))
}

func valueFromGamma(gamma kyber.Point) (roundtypes.DrawValue, error) {
	raw, err := gamma.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("encode gamma: %w", err)
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(raw)
	return valueFromDigest(h.Sum(nil)), nil
}
