package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

func TestReference(t *testing.T) {
	t.Parallel()

	c := Reference(0)
	if got := len(c.ListRooms()); got != 4 {
		t.Fatalf("expected 4 rooms, got %d", got)
	}
	if got := c.TotalBeds(); got != 38 {
		t.Fatalf("expected 38 beds, got %d", got)
	}
	r, ok := c.Room("female-7")
	if !ok {
		t.Fatalf("expected female-7 room")
	}
	if r.Type != model.RoomTypeFemale || !r.IsFlexible {
		t.Fatalf("expected flexible female room, got %+v", r)
	}
	if r.BasePricePerBedNight != DefaultBasePrice {
		t.Fatalf("expected default price, got %s", r.BasePricePerBedNight)
	}
	if !r.HasBed(7) || r.HasBed(8) || r.HasBed(0) {
		t.Fatalf("unexpected bed bounds for capacity 7")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	cases := map[string][]model.Room{
		"empty":        nil,
		"missing id":   {{Capacity: 1, Type: model.RoomTypeMixed, BasePricePerBedNight: 1}},
		"zero cap":     {{ID: "a", Type: model.RoomTypeMixed, BasePricePerBedNight: 1}},
		"no price":     {{ID: "a", Capacity: 1, Type: model.RoomTypeMixed}},
		"bad type":     {{ID: "a", Capacity: 1, Type: "COED", BasePricePerBedNight: 1}},
		"flex mixed":   {{ID: "a", Capacity: 1, Type: model.RoomTypeMixed, BasePricePerBedNight: 1, IsFlexible: true}},
		"duplicate id": {{ID: "a", Capacity: 1, Type: model.RoomTypeMixed, BasePricePerBedNight: 1}, {ID: "a", Capacity: 2, Type: model.RoomTypeMixed, BasePricePerBedNight: 1}},
	}
	for name, rooms := range cases {
		if _, err := New(rooms); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rooms.yaml")
	content := `rooms:
  - id: dorm-b
    name: Dorm B
    capacity: 4
    type: MIXED
  - id: dorm-a
    name: Dorm A
    capacity: 6
    type: FEMALE
    flexible: true
    base_price_cents: 7500
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path, 6000)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	rooms := c.ListRooms()
	if rooms[0].ID != "dorm-a" || rooms[1].ID != "dorm-b" {
		t.Fatalf("expected rooms sorted by id, got %v", rooms)
	}
	if rooms[0].BasePricePerBedNight != 7500 {
		t.Fatalf("expected explicit price kept, got %s", rooms[0].BasePricePerBedNight)
	}
	if rooms[1].BasePricePerBedNight != 6000 {
		t.Fatalf("expected default price applied, got %s", rooms[1].BasePricePerBedNight)
	}
	if c.TotalBeds() != 10 {
		t.Fatalf("expected 10 beds, got %d", c.TotalBeds())
	}
}
