package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type LineKind string

const (
	LineGeneral LineKind = "general"
	LineSeat    LineKind = "seat"
)

// LineItem is either a GeneralLine or a SeatLine. The set is closed.
type LineItem interface {
	Kind() LineKind
	isLineItem()
}

// GeneralLine buys Quantity tickets of a pricing tier
type GeneralLine struct {
	TierID   uuid.UUID
	Quantity int
}

func (GeneralLine) Kind() LineKind { return LineGeneral }
func (GeneralLine) isLineItem()    {}

// SeatLine buys one numbered seat
type SeatLine struct {
	SeatID uuid.UUID
}

func (SeatLine) Kind() LineKind { return LineSeat }
func (SeatLine) isLineItem()    {}

// LineItems is the persisted list of lines of an intent or order.
type LineItems []LineItem

type lineItemJSON struct {
	Kind     LineKind   `json:"kind"`
	TierID   *uuid.UUID `json:"tier_id,omitempty"`
	Quantity int        `json:"quantity,omitempty"`
	SeatID   *uuid.UUID `json:"seat_id,omitempty"`
}

func (l LineItems) MarshalJSON() ([]byte, error) {
	out := make([]lineItemJSON, 0, len(l))
	for _, item := range l {
		switch v := item.(type) {
		case GeneralLine:
			id := v.TierID
			out = append(out, lineItemJSON{Kind: LineGeneral, TierID: &id, Quantity: v.Quantity})
		case SeatLine:
			id := v.SeatID
			out = append(out, lineItemJSON{Kind: LineSeat, SeatID: &id})
		default:
			return nil, fmt.Errorf("unknown line item %T", item)
		}
	}
	return json.Marshal(out)
}

func (l *LineItems) UnmarshalJSON(data []byte) error {
	var raw []lineItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items := make(LineItems, 0, len(raw))
	for i, r := range raw {
		switch r.Kind {
		case LineGeneral:
			if r.TierID == nil {
				return fmt.Errorf("line %d: general line without tier_id", i)
			}
			items = append(items, GeneralLine{TierID: *r.TierID, Quantity: r.Quantity})
		case LineSeat:
			if r.SeatID == nil {
				return fmt.Errorf("line %d: seat line without seat_id", i)
			}
			items = append(items, SeatLine{SeatID: *r.SeatID})
		default:
			return fmt.Errorf("line %d: unknown kind %q", i, r.Kind)
		}
	}
	*l = items
	return nil
}

// Value stores the lines as a JSON document column.
func (l LineItems) Value() (driver.Value, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *LineItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return l.UnmarshalJSON(v)
	case string:
		return l.UnmarshalJSON([]byte(v))
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into LineItems", src)
	}
}

// GormDataType makes AutoMigrate create a jsonb column
func (LineItems) GormDataType() string {
	return "jsonb"
}

// Clone returns an independent copy of the slice
func (l LineItems) Clone() LineItems {
	if l == nil {
		return nil
	}
	out := make(LineItems, len(l))
	copy(out, l)
	return out
}
