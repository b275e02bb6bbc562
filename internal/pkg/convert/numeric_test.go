package convert

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestToFloat64(t *testing.T) {
	assert.Equal(t, 42150.2, ToFloat64("42150.20"))
	assert.Equal(t, 1.5, ToFloat64(" 1.5 "))
	assert.Equal(t, 3.0, ToFloat64(3))
	assert.Equal(t, 2.5, ToFloat64(json.Number("2.5")))
	assert.Zero(t, ToFloat64("abc"))
	assert.Zero(t, ToFloat64(nil))
	assert.Zero(t, ToFloat64(true))
	assert.Zero(t, ToFloat64(math.NaN()))
	assert.Zero(t, ToFloat64("Inf"))
}

func TestNumber(t *testing.T) {
	doc := `{"a":"1.25","b":2,"c":null,"d":"x","e":{"k":1},"f":true}`
	assert.Equal(t, 1.25, Number(gjson.Get(doc, "a")))
	assert.Equal(t, 2.0, Number(gjson.Get(doc, "b")))
	assert.Zero(t, Number(gjson.Get(doc, "c")))
	assert.Zero(t, Number(gjson.Get(doc, "d")))
	assert.Zero(t, Number(gjson.Get(doc, "e")))
	assert.Zero(t, Number(gjson.Get(doc, "f")))
	assert.Zero(t, Number(gjson.Get(doc, "missing")))
}

func TestInt64(t *testing.T) {
	doc := `{"a":"1700000000000","b":1700000000001,"c":"nope"}`
	assert.Equal(t, int64(1700000000000), Int64(gjson.Get(doc, "a")))
	assert.Equal(t, int64(1700000000001), Int64(gjson.Get(doc, "b")))
	assert.Zero(t, Int64(gjson.Get(doc, "c")))
}

func TestFromFixed(t *testing.T) {
	assert.InDelta(t, 65000.5, FromFixed("65000500000000000000000000000000000", 30), 1e-9)
	assert.InDelta(t, 3000.0, FromFixed("3000000000000000", 12), 1e-9)
	assert.Zero(t, FromFixed("not-a-number", 30))
}
