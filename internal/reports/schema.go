package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dgallion1/isdaudit/internal/extract"
)

func amounts(names ...string) map[string]any {
	props := make(map[string]any, len(names))
	for _, n := range names {
		props[n] = map[string]any{"type": "integer", "minimum": 0}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             names,
		"additionalProperties": false,
	}
}

// RecordSchema describes a FinancialRecord as JSON. Manually entered or
// imported records must satisfy it.
var RecordSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"properties": map[string]any{
		"netPosition":  amounts("totalAssets", "totalLiabilities", "netPosition"),
		"fundBalance":  amounts("generalFund", "debtServiceFund"),
		"revenues":     amounts("local", "state", "federal"),
		"expenditures": amounts("instruction", "admin", "debtService"),
		"districtName": map[string]any{"type": "string"},
		"fiscalYear":   map[string]any{"type": "string", "pattern": `^\d{4}$`},
	},
	"required": []string{"netPosition", "fundBalance", "revenues", "expenditures"},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func recordSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(RecordSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("record.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ValidateRecordJSON checks data against RecordSchema.
func ValidateRecordJSON(data []byte) error {
	schema, err := recordSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}

// DecodeRecord validates and decodes a record.
func DecodeRecord(data []byte) (extract.FinancialRecord, error) {
	var rec extract.FinancialRecord
	if err := ValidateRecordJSON(data); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
