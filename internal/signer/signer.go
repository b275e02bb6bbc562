// Package signer holds the wallet key and produces EIP-712 signatures.
// Callers hand it a typed payload and get a signature back; key material
// never leaves the package.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var ErrNotConfigured = errors.New("signer not configured")

// Signer is the opaque signing capability used by order placers.
type Signer interface {
	Address() string
	Sign(domain apitypes.TypedDataDomain, types apitypes.Types, primaryType string, message apitypes.TypedDataMessage) (Signature, error)
}

// Signature is a secp256k1 signature with v in 27/28 form.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// Hex returns the 65-byte r||s||v encoding.
func (s Signature) Hex() string {
	return "0x" + strings.TrimPrefix(s.R, "0x") + strings.TrimPrefix(s.S, "0x") + fmt.Sprintf("%02x", s.V)
}

type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(hexKey string) (*KeySigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, ErrNotConfigured
	}
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &KeySigner{key: pk, address: crypto.PubkeyToAddress(pk.PublicKey)}, nil
}

// FromEnv reads the hex key from the named environment variable. It returns
// ErrNotConfigured when the variable is unset.
func FromEnv(name string) (*KeySigner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotConfigured
	}
	return NewKeySigner(os.Getenv(name))
}

func (s *KeySigner) Address() string {
	return s.address.Hex()
}

// Sign hashes the typed data per EIP-712 and signs the digest. The
// EIP712Domain type is derived from the populated domain fields when
// types does not declare it.
func (s *KeySigner) Sign(domain apitypes.TypedDataDomain, types apitypes.Types, primaryType string, message apitypes.TypedDataMessage) (Signature, error) {
	digest, err := hashTypedData(domain, types, primaryType, message)
	if err != nil {
		return Signature{}, err
	}
	return s.SignDigest(digest)
}

// SignDigest signs a 32-byte hash.
func (s *KeySigner) SignDigest(digest []byte) (Signature, error) {
	if len(digest) != 32 {
		return Signature{}, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("sign digest: %w", err)
	}
	return Signature{
		R: "0x" + common.Bytes2Hex(sig[:32]),
		S: "0x" + common.Bytes2Hex(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}

func hashTypedData(domain apitypes.TypedDataDomain, types apitypes.Types, primaryType string, message apitypes.TypedDataMessage) ([]byte, error) {
	all := make(apitypes.Types, len(types)+1)
	for k, v := range types {
		all[k] = v
	}
	if _, ok := all["EIP712Domain"]; !ok {
		all["EIP712Domain"] = domainType(domain)
	}
	digest, _, err := apitypes.TypedDataAndHash(apitypes.TypedData{
		Types:       all,
		PrimaryType: primaryType,
		Domain:      domain,
		Message:     message,
	})
	if err != nil {
		return nil, fmt.Errorf("eip712 typed data hash: %w", err)
	}
	return digest, nil
}

func domainType(d apitypes.TypedDataDomain) []apitypes.Type {
	var out []apitypes.Type
	if d.Name != "" {
		out = append(out, apitypes.Type{Name: "name", Type: "string"})
	}
	if d.Version != "" {
		out = append(out, apitypes.Type{Name: "version", Type: "string"})
	}
	if d.ChainId != nil {
		out = append(out, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	if d.VerifyingContract != "" {
		out = append(out, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	if d.Salt != "" {
		out = append(out, apitypes.Type{Name: "salt", Type: "bytes32"})
	}
	return out
}

// Domain is a shorthand for the common name/version/chainId/contract domain.
func Domain(name, version string, chainID int64, verifyingContract string) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              name,
		Version:           version,
		ChainId:           math.NewHexOrDecimal256(chainID),
		VerifyingContract: verifyingContract,
	}
}

// Recover returns the address that produced sig over the typed data.
func Recover(domain apitypes.TypedDataDomain, types apitypes.Types, primaryType string, message apitypes.TypedDataMessage, sig Signature) (string, error) {
	digest, err := hashTypedData(domain, types, primaryType, message)
	if err != nil {
		return "", err
	}
	return RecoverDigest(digest, sig)
}

func RecoverDigest(digest []byte, sig Signature) (string, error) {
	raw := common.FromHex(sig.Hex())
	if len(raw) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(raw))
	}
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, raw)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
