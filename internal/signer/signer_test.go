package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well-known hardhat account #0
const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestNewKeySignerAddress(t *testing.T) {
	s, err := NewKeySigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, testAddr, s.Address())
}

func TestNewKeySignerErrors(t *testing.T) {
	_, err := NewKeySigner("  ")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewKeySigner("zz")
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TEST_PERPDESK_KEY", testKey)
	s, err := FromEnv("TEST_PERPDESK_KEY")
	require.NoError(t, err)
	assert.Equal(t, testAddr, s.Address())

	t.Setenv("TEST_PERPDESK_KEY", "")
	_, err = FromEnv("TEST_PERPDESK_KEY")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSignTypedDataRecoversSigner(t *testing.T) {
	s, err := NewKeySigner(testKey)
	require.NoError(t, err)

	domain := Domain("Exchange", "1", 1337, "0x0000000000000000000000000000000000000000")
	types := apitypes.Types{
		"Agent": {
			{Name: "source", Type: "string"},
			{Name: "connectionId", Type: "bytes32"},
		},
	}
	msg := apitypes.TypedDataMessage{
		"source":       "a",
		"connectionId": crypto.Keccak256([]byte("action")),
	}

	sig, err := s.Sign(domain, types, "Agent", msg)
	require.NoError(t, err)
	assert.Contains(t, []uint8{27, 28}, sig.V)
	assert.Len(t, sig.Hex(), 2+130)

	addr, err := Recover(domain, types, "Agent", msg, sig)
	require.NoError(t, err)
	assert.Equal(t, testAddr, addr)
}

func TestSignIsDeterministic(t *testing.T) {
	s, err := NewKeySigner(testKey)
	require.NoError(t, err)
	domain := Domain("Test", "1", 1, "")
	types := apitypes.Types{"Ping": {{Name: "n", Type: "uint256"}}}
	msg := apitypes.TypedDataMessage{"n": big.NewInt(7)}

	a, err := s.Sign(domain, types, "Ping", msg)
	require.NoError(t, err)
	b, err := s.Sign(domain, types, "Ping", msg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSignDigestRejectsBadLength(t *testing.T) {
	s, err := NewKeySigner(testKey)
	require.NoError(t, err)
	_, err = s.SignDigest([]byte{1, 2, 3})
	assert.Error(t, err)
}
