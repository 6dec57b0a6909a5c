// Package entropy implements the draw sources used by the round engine.
package entropy

import (
	"context"
	"encoding/binary"
	"errors"
	"hash"

	"golang.org/x/crypto/sha3"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// ErrNoSecret is returned when a source is built without key material.
var ErrNoSecret = errors.New("entropy secret must not be empty")

// HashSource derives draws from Keccak-256 over an operator secret and the
// draw context. Callers cannot predict a draw without the secret, and a
// context is never repeated because its sequence always advances.
type HashSource struct {
	secret []byte
}

// NewHashSource returns a source keyed by secret.
func NewHashSource(secret []byte) (*HashSource, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &HashSource{secret: key}, nil
}

// Draw returns a value in [1, BoardRange].
func (s *HashSource) Draw(ctx context.Context, dc roundtypes.DrawContext) (roundtypes.DrawValue, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(s.secret)
	writeContext(h, dc)
	return valueFromDigest(h.Sum(nil)), nil
}

// writeContext feeds dc to h in a fixed, length-prefixed layout.
func writeContext(h hash.Hash, dc roundtypes.DrawContext) {
	var buf [8]byte
	put := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	put(uint64(dc.RoundID))
	put(uint64(len(dc.Identity)))
	h.Write([]byte(dc.Identity))
	put(uint64(dc.JoinIndex))
	put(dc.Sequence)
	put(uint64(dc.Timestamp.UnixNano()))
}

func encodeContext(dc roundtypes.DrawContext) []byte {
	h := sha3.NewLegacyKeccak256()
	writeContext(h, dc)
	return h.Sum(nil)
}

// valueFromDigest maps the first 8 bytes of d onto the board.
func valueFromDigest(d []byte) roundtypes.DrawValue {
	n := binary.BigEndian.Uint64(d[:8])
	return roundtypes.DrawValue(n%roundtypes.BoardRange + 1)
}
