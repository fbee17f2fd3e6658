package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// OdooString accepts Odoo's `false` in place of an empty text field.
type OdooString string

// UnmarshalJSON handles dynamic typing from Odoo
func (os *OdooString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*os = OdooString(s)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*os = "true"
		} else {
			*os = ""
		}
		return nil
	}

	return errors.New("OdooString: cannot unmarshal value into string")
}

// Value implements driver.Valuer interface for database storage
func (os OdooString) Value() (driver.Value, error) {
	return string(os), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (os *OdooString) Scan(value interface{}) error {
	if value == nil {
		*os = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*os = OdooString(v)
	case []byte:
		*os = OdooString(string(v))
	default:
		return fmt.Errorf("failed to scan OdooString: %v", value)
	}
	return nil
}

func (os OdooString) String() string {
	return string(os)
}

// OdooMany2One decodes a relational field sent as [id, "display name"] or false.
type OdooMany2One struct {
	ID   int64
	Name string
}

func (m *OdooMany2One) UnmarshalJSON(data []byte) error {
	var pair []interface{}
	if err := json.Unmarshal(data, &pair); err == nil {
		*m = OdooMany2One{}
		if len(pair) > 0 {
			if f, ok := pair[0].(float64); ok {
				m.ID = int64(f)
			}
		}
		if len(pair) > 1 {
			if s, ok := pair[1].(string); ok {
				m.Name = s
			}
		}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*m = OdooMany2One{}
		return nil
	}

	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		*m = OdooMany2One{ID: id}
		return nil
	}

	return fmt.Errorf("OdooMany2One: cannot unmarshal %s", string(data))
}

// OdooTimeLayout is the server-side datetime format used by Odoo (UTC).
const OdooTimeLayout = "2006-01-02 15:04:05"

// OdooTime decodes Odoo datetime strings; `false` leaves the zero time.
type OdooTime struct {
	time.Time
}

func (t *OdooTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var b bool
		if json.Unmarshal(data, &b) == nil && !b {
			t.Time = time.Time{}
			return nil
		}
		return fmt.Errorf("OdooTime: cannot unmarshal %s", string(data))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	layout := OdooTimeLayout
	if len(s) == len("2006-01-02") {
		layout = "2006-01-02"
	}
	parsed, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("OdooTime: %w", err)
	}
	t.Time = parsed
	return nil
}
