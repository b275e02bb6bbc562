package apihttp

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/orders.yaml
var ordersSchemaYAML []byte

// Schemas 保存编译后的请求体 schema。
type Schemas struct {
	Order  *jsonschema.Schema
	Cancel *jsonschema.Schema
}

func LoadSchemas() (*Schemas, error) {
	var doc map[string]map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(ordersSchemaYAML))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse order schemas: %w", err)
	}
	order, err := compileSchema("order.json", doc["order"])
	if err != nil {
		return nil, fmt.Errorf("compile order schema: %w", err)
	}
	cancel, err := compileSchema("cancel.json", doc["cancel"])
	if err != nil {
		return nil, fmt.Errorf("compile cancel schema: %w", err)
	}
	return &Schemas{Order: order, Cancel: cancel}, nil
}

func compileSchema(name string, data map[string]any) (*jsonschema.Schema, error) {
	if data == nil {
		return nil, fmt.Errorf("schema %s missing", name)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// numericFields 可能以字符串形式提交，需要先转成数字。
var numericFields = []string{"size", "price", "leverage", "takeProfit", "stopLoss"}

// decodeValidated 解析请求体，转换数字字符串，按 schema 校验后解码到 out。
func decodeValidated(schema *jsonschema.Schema, body []byte, out any) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	doc = sanitize(doc)
	if err := schema.Validate(doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func sanitize(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for _, k := range numericFields {
		if s, ok := m[k].(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				m[k] = json.Number(strconv.FormatFloat(f, 'f', -1, 64))
			}
		}
	}
	if side, ok := m["side"].(string); ok {
		m["side"] = strings.ToLower(strings.TrimSpace(side))
	}
	if ex, ok := m["exchange"].(string); ok {
		m["exchange"] = strings.ToLower(strings.TrimSpace(ex))
	}
	if tpsl, ok := m["tpsl"]; ok {
		m["tpsl"] = sanitize(tpsl)
	}
	return m
}
