package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// fallback layouts tried when the value does not start with YYYY-MM-DD
var dateLayouts = []string{
	"02/01/2006",
	time.RFC1123,
	time.RFC1123Z,
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Date is a calendar date without time of day. The zero value means "no date"
// and is stored as NULL.
type Date struct {
	t     time.Time
	valid bool
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), valid: true}
}

// ParseDate accepts YYYY-MM-DD, any ISO timestamp (its date part is kept as
// written, no zone conversion) and a few other common layouts. An empty
// string is the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if len(s) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, s[:len(dateLayout)]); err == nil {
			if len(s) == len(dateLayout) || s[len(dateLayout)] == 'T' || s[len(dateLayout)] == ' ' {
				return Date{t: t, valid: true}, nil
			}
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Date()), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) IsZero() bool { return !d.valid }

func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if !d.valid {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if !d.valid {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Date())
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanString(s string) error {
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
