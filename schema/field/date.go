package field

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the textual layout of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day. Fields of this type carry
// the TypeDate semantic type, as opposed to time.Time which is TypeTime.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date of t in t's location. The time of day is dropped.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in the "2006-01-02" layout.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String returns the date in the "2006-01-02" layout.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Value implements the driver.Valuer interface.
func (d Date) Value() (driver.Value, error) {
	return d.Time(), nil
}

// Scan implements the sql.Scanner interface.
func (d *Date) Scan(v any) error {
	switch v := v.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v)
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("field: unsupported Date scan type %T", v)
	}
	return nil
}

func (d *Date) parse(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	nd, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = nd
	return nil
}
