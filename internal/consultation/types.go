// AngelaMos | 2026
// types.go

package consultation

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Object is a JSONB object column.
type Object map[string]any

func (o Object) Value() (driver.Value, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]any(o))
	if err != nil {
		return nil, fmt.Errorf("encode json object: %w", err)
	}
	return b, nil
}

func (o *Object) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return err
	}
	m := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("decode json object: %w", err)
		}
	}
	*o = m
	return nil
}

// List is a JSONB array-of-strings column. A nil List is stored as [].
type List []string

func (l List) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("encode json list: %w", err)
	}
	return b, nil
}

func (l *List) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return err
	}
	s := []string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode json list: %w", err)
		}
	}
	*l = s
	return nil
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json column type %T", src)
	}
}
