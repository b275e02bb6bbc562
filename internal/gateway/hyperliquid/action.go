package hyperliquid

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"perpdesk/internal/signer"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ugorji/go/codec"
)

// Field order of the wire structs is part of the signature: the action is
// hashed as a msgpack map in declaration order.

type orderWire struct {
	Asset      int           `codec:"a" json:"a"`
	IsBuy      bool          `codec:"b" json:"b"`
	Price      string        `codec:"p" json:"p"`
	Size       string        `codec:"s" json:"s"`
	ReduceOnly bool          `codec:"r" json:"r"`
	Type       orderTypeWire `codec:"t" json:"t"`
	Cloid      string        `codec:"c,omitempty" json:"c,omitempty"`
}

type orderTypeWire struct {
	Limit   *limitWire   `codec:"limit,omitempty" json:"limit,omitempty"`
	Trigger *triggerWire `codec:"trigger,omitempty" json:"trigger,omitempty"`
}

type limitWire struct {
	Tif string `codec:"tif" json:"tif"`
}

type triggerWire struct {
	IsMarket  bool   `codec:"isMarket" json:"isMarket"`
	TriggerPx string `codec:"triggerPx" json:"triggerPx"`
	Tpsl      string `codec:"tpsl" json:"tpsl"`
}

type orderAction struct {
	Type     string      `codec:"type" json:"type"`
	Orders   []orderWire `codec:"orders" json:"orders"`
	Grouping string      `codec:"grouping" json:"grouping"`
}

type cancelWire struct {
	Asset int   `codec:"a" json:"a"`
	Oid   int64 `codec:"o" json:"o"`
}

type cancelAction struct {
	Type    string       `codec:"type" json:"type"`
	Cancels []cancelWire `codec:"cancels" json:"cancels"`
}

type cancelCloidWire struct {
	Asset int    `codec:"asset" json:"asset"`
	Cloid string `codec:"cloid" json:"cloid"`
}

type cancelByCloidAction struct {
	Type    string            `codec:"type" json:"type"`
	Cancels []cancelCloidWire `codec:"cancels" json:"cancels"`
}

type leverageAction struct {
	Type     string `codec:"type" json:"type"`
	Asset    int    `codec:"asset" json:"asset"`
	IsCross  bool   `codec:"isCross" json:"isCross"`
	Leverage int    `codec:"leverage" json:"leverage"`
}

var msgpackHandle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return h
}()

// ActionHash is keccak256(msgpack(action) || nonce_be64 || vault flag [|| vault]).
func ActionHash(action any, nonce int64, vault string) ([]byte, error) {
	buf, err := packAction(action)
	if err != nil {
		return nil, err
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(nonce))
	buf = append(buf, n[:]...)
	if vault == "" {
		buf = append(buf, 0x00)
	} else {
		buf = append(buf, 0x01)
		buf = append(buf, common.HexToAddress(vault).Bytes()...)
	}
	return crypto.Keccak256(buf), nil
}

func packAction(action any) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, msgpackHandle).Encode(action); err != nil {
		return nil, fmt.Errorf("hyperliquid: encode action: %w", err)
	}
	return buf, nil
}

var agentTypes = apitypes.Types{
	"Agent": {
		{Name: "source", Type: "string"},
		{Name: "connectionId", Type: "bytes32"},
	},
}

// SignAction signs an L1 action as the phantom agent {source, connectionId}.
func SignAction(s signer.Signer, action any, nonce int64, testnet bool) (signer.Signature, error) {
	hash, err := ActionHash(action, nonce, "")
	if err != nil {
		return signer.Signature{}, err
	}
	source := "a"
	if testnet {
		source = "b"
	}
	domain := signer.Domain("Exchange", "1", 1337, "0x0000000000000000000000000000000000000000")
	return s.Sign(domain, agentTypes, "Agent", apitypes.TypedDataMessage{
		"source":       source,
		"connectionId": hash,
	})
}

// FloatToWire renders a number the way the exchange hashes it: at most 8
// decimals, no trailing zeros.
func FloatToWire(v float64) string {
	s := decimal.NewFromFloat(v).Round(8).String()
	if s == "-0" {
		return "0"
	}
	return s
}

// RoundPrice keeps 5 significant figures and at most 6-szDecimals decimals.
func RoundPrice(px float64, szDecimals int) float64 {
	if px <= 0 {
		return 0
	}
	sig, _ := strconv.ParseFloat(strconv.FormatFloat(px, 'g', 5, 64), 64)
	places := 6 - szDecimals
	if places < 0 {
		places = 0
	}
	return decimal.NewFromFloat(sig).Round(int32(places)).InexactFloat64()
}

func RoundSize(sz float64, szDecimals int) float64 {
	return decimal.NewFromFloat(sz).Round(int32(szDecimals)).InexactFloat64()
}

// Cloid turns a client id into the 16-byte hex order id. UUIDs map
// directly; anything else is hashed.
func Cloid(clientID string) string {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return ""
	}
	if u, err := uuid.Parse(clientID); err == nil {
		return "0x" + hex.EncodeToString(u[:])
	}
	if strings.HasPrefix(clientID, "0x") && len(clientID) == 34 {
		return strings.ToLower(clientID)
	}
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(clientID))[:16])
}

func roundLeverage(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		n = 1
	}
	return n
}
