// Package catalog holds the static description of the hostel's rooms.  No
// other package hard-codes bed counts or prices; they all ask the catalog.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

// DefaultBasePrice is the nightly price of a bed in the reference
// deployment (R$60.00).
const DefaultBasePrice model.Money = 6000

// Catalog is an immutable, validated list of rooms.
type Catalog struct {
	rooms []model.Room
	byID  map[string]model.Room
}

// Reference returns the four rooms of the reference deployment: two 12-bed
// mixed dorms, one 7-bed mixed dorm and one 7-bed flexible female dorm.
func Reference(basePrice model.Money) *Catalog {
	if basePrice <= 0 {
		basePrice = DefaultBasePrice
	}
	c, err := New([]model.Room{
		{ID: "mixed-12a", Name: "Mixed Dorm 12 A", Capacity: 12, Type: model.RoomTypeMixed, BasePricePerBedNight: basePrice},
		{ID: "mixed-12b", Name: "Mixed Dorm 12 B", Capacity: 12, Type: model.RoomTypeMixed, BasePricePerBedNight: basePrice},
		{ID: "mixed-7", Name: "Mixed Dorm 7", Capacity: 7, Type: model.RoomTypeMixed, BasePricePerBedNight: basePrice},
		{ID: "female-7", Name: "Female Dorm 7", Capacity: 7, Type: model.RoomTypeFemale, BasePricePerBedNight: basePrice, IsFlexible: true},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// New validates rooms and builds a catalog.  Rooms are kept sorted by ID.
func New(rooms []model.Room) (*Catalog, error) {
	if len(rooms) == 0 {
		return nil, fmt.Errorf("catalog: no rooms")
	}
	c := &Catalog{
		rooms: make([]model.Room, 0, len(rooms)),
		byID:  make(map[string]model.Room, len(rooms)),
	}
	for _, r := range rooms {
		if r.ID == "" {
			return nil, fmt.Errorf("catalog: room without id")
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate room id %q", r.ID)
		}
		if r.Capacity < 1 {
			return nil, fmt.Errorf("catalog: room %q has capacity %d", r.ID, r.Capacity)
		}
		if r.BasePricePerBedNight <= 0 {
			return nil, fmt.Errorf("catalog: room %q has no base price", r.ID)
		}
		switch r.Type {
		case model.RoomTypeMixed:
			if r.IsFlexible {
				return nil, fmt.Errorf("catalog: room %q is mixed and cannot be flexible", r.ID)
			}
		case model.RoomTypeFemale:
		default:
			return nil, fmt.Errorf("catalog: room %q has unknown type %q", r.ID, r.Type)
		}
		c.byID[r.ID] = r
		c.rooms = append(c.rooms, r)
	}
	sort.Slice(c.rooms, func(i, j int) bool { return c.rooms[i].ID < c.rooms[j].ID })
	return c, nil
}

type fileFormat struct {
	Rooms []model.Room `yaml:"rooms"`
}

// Load reads a YAML catalog file.  Rooms without a price get basePrice.
//
//	rooms:
//	  - id: mixed-12a
//	    name: Mixed Dorm 12 A
//	    capacity: 12
//	    type: MIXED
//	    base_price_cents: 6000
func Load(path string, basePrice model.Money) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	for i := range f.Rooms {
		if f.Rooms[i].BasePricePerBedNight == 0 {
			f.Rooms[i].BasePricePerBedNight = basePrice
		}
	}
	return New(f.Rooms)
}

// ListRooms returns a copy of every room, sorted by ID.
func (c *Catalog) ListRooms() []model.Room {
	return append([]model.Room(nil), c.rooms...)
}

// Room looks up a room by ID.
func (c *Catalog) Room(id string) (model.Room, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// TotalBeds is the sum of room capacities.
func (c *Catalog) TotalBeds() int {
	n := 0
	for _, r := range c.rooms {
		n += r.Capacity
	}
	return n
}
