package model

// RoomType is the gender policy of a dormitory.
type RoomType string

const (
	RoomTypeMixed  RoomType = "MIXED"
	RoomTypeFemale RoomType = "FEMALE"
)

// Room is a physical dormitory.  Rooms are static: they are loaded once at
// startup from the catalog and never mutated.  ID is the identifier used in
// bed selections and bed indexes run 1..Capacity.  BasePricePerBedNight is
// the nightly price of one bed before season and discount.  IsFlexible marks
// a FEMALE room that may open to any guest close to check-in; see
// service.Ledger.EffectiveRoomType.
type Room struct {
	ID                   string   `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	Capacity             int      `json:"capacity" yaml:"capacity"`
	Type                 RoomType `json:"type" yaml:"type"`
	BasePricePerBedNight Money    `json:"basePricePerBedNight" yaml:"base_price_cents"`
	IsFlexible           bool     `json:"isFlexible" yaml:"flexible"`
}

// HasBed reports whether index addresses a bed in r.
func (r Room) HasBed(index int) bool {
	return index >= 1 && index <= r.Capacity
}

// Bed is a single bed, identified only by its room and 1-based index.
type Bed struct {
	RoomID string `json:"roomId"`
	Index  int    `json:"index"`
}
