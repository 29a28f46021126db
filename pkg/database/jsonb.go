package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB maps a Postgres jsonb column onto T.
type JSONB[T any] struct {
	Data T
}

// Scan replaces Data with the column value. Nothing from a previous scan
// survives, so row structs can be reused.
func (p *JSONB[T]) Scan(src any) error {
	var data T
	switch v := src.(type) {
	case []byte:
		if err := json.Unmarshal(v, &data); err != nil {
			return err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &data); err != nil {
			return err
		}
	case nil:
	default:
		return fmt.Errorf("JSONB.Scan: expected []byte, got %T", src)
	}
	p.Data = data
	return nil
}

func (p JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *JSONB[T]) GetValue() T {
	return p.Data
}
