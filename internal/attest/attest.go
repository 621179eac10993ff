// Package attest signs rendered markup so a consumer can check which
// deployment produced an edition and that it was not altered on the way.
//
// Signatures are recoverable secp256k1 signatures over the Keccak-256 digest
// of the payload, hex encoded; the signer is identified by its address.
package attest

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs payloads with a single secp256k1 key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New creates a Signer from a hex-encoded private key (0x prefix optional).
func New(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("attest: invalid hex key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("attest: key must be 32 bytes, got %d", len(raw))
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("attest: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the signer's checksummed address.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// Sign returns the hex-encoded 65-byte signature (r || s || v) of payload.
// Signing is deterministic (RFC 6979).
func (s *Signer) Sign(payload []byte) (string, error) {
	sig, err := crypto.Sign(crypto.Keccak256(payload), s.key)
	if err != nil {
		return "", fmt.Errorf("attest: sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// Verify reports whether sig is a signature of payload by address.
func Verify(payload []byte, sig, address string) bool {
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil || len(raw) != crypto.SignatureLength {
		return false
	}
	if !common.IsHexAddress(address) {
		return false
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(payload), raw)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == common.HexToAddress(address)
}
