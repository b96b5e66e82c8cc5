package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

type ID = uint

// DateLayout is the wire format for all calendar dates.
const DateLayout = "02.01.2006"

// Date is a calendar date exchanged as DD.MM.YYYY and stored as a DATE column.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("date: invalid value %s", data)
	}

	parsed, err := ParseDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *Date) Scan(src any) error {
	switch src := src.(type) {
	case time.Time:
		d.Time = src
		return nil
	case string:
		t, err := time.Parse(time.DateOnly, src)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	default:
		return fmt.Errorf("date: cannot scan %T", src)
	}
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Import struct {
	ID        ID        `json:"import_id" db:"id"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// Citizen belongs to exactly one Import; CitizenID is unique within it only.
type Citizen struct {
	ID       ID `json:"-" db:"id"`
	ImportID ID `json:"-" db:"import_id"`

	CitizenID int    `json:"citizen_id" db:"citizen_id"`
	Town      string `json:"town" db:"town"`
	Street    string `json:"street" db:"street"`
	Building  string `json:"building" db:"building"`
	Apartment int    `json:"apartment" db:"apartment"`
	Name      string `json:"name" db:"name"`
	BirthDate Date   `json:"birth_date" db:"birth_date"`
	Gender    Gender `json:"gender" db:"gender"`

	Relatives []int `json:"relatives" db:"-"`
}

// Edge is one undirected relative pair, stored once per pair and referencing
// citizen rows, not public citizen ids.
type Edge struct {
	ID       ID `db:"id"`
	ImportID ID `db:"import_id"`
	Citizen1 ID `db:"citizen_1"`
	Citizen2 ID `db:"citizen_2"`
}

// CitizenUpdate carries the mutable non-relative fields of a patch; nil means
// the field was not supplied.
type CitizenUpdate struct {
	Town      *string
	Street    *string
	Building  *string
	Apartment *int
	Name      *string
	BirthDate *Date
	Gender    *Gender
}

func (u CitizenUpdate) Empty() bool {
	return u.Town == nil && u.Street == nil && u.Building == nil &&
		u.Apartment == nil && u.Name == nil && u.BirthDate == nil && u.Gender == nil
}
