// Package room picks the staged room a classified product is rendered into.
package room

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/kiranshivaraju/scenegen/pkg/models"
)

var (
	wineBarRooms = []models.RoomContext{
		{
			RoomType:   "dining room",
			RoomDesc:   "sophisticated dining room with elegant table setting visible in background",
			Placement:  "positioned along the wall as a statement piece",
			Supporting: "fine dining table with chairs, elegant chandelier overhead",
		},
		{
			RoomType:   "living room",
			RoomDesc:   "upscale living room with comfortable seating area",
			Placement:  "featured prominently near the seating area",
			Supporting: "plush sofa, armchairs, coffee table with books",
		},
		{
			RoomType:   "home entertainment area",
			RoomDesc:   "dedicated home bar or entertainment space",
			Placement:  "as the centerpiece of the entertainment area",
			Supporting: "bar stools, ambient lighting, tasteful wall art",
		},
	}

	displayRooms = []models.RoomContext{
		{
			RoomType:   "living room",
			RoomDesc:   "elegant living room with refined furnishings",
			Placement:  "displayed prominently as a focal point",
			Supporting: "comfortable seating, side tables, decorative accessories visible inside the cabinet",
		},
		{
			RoomType:   "dining room",
			RoomDesc:   "formal dining room with sophisticated ambiance",
			Placement:  "featured elegantly against the wall",
			Supporting: "dining table in background, fine china or collectibles visible inside the cabinet",
		},
		{
			RoomType:   "entryway or foyer",
			RoomDesc:   "grand entryway with welcoming atmosphere",
			Placement:  "showcased as a statement piece",
			Supporting: "elegant mirror, console table, decorative items displayed inside the cabinet",
		},
	}

	floorClockRooms = []models.RoomContext{
		{
			RoomType:   "living room",
			RoomDesc:   "classic living room with timeless elegance",
			Placement:  "standing majestically as a centerpiece",
			Supporting: "traditional furniture, area rug, the clock commanding attention",
		},
		{
			RoomType:   "entryway or foyer",
			RoomDesc:   "grand entryway with welcoming presence",
			Placement:  "positioned impressively to greet visitors",
			Supporting: "elegant console table, mirror, the clock as a statement piece",
		},
		{
			RoomType:   "home library or study",
			RoomDesc:   "distinguished library or study with rich character",
			Placement:  "standing prominently in a corner or along the wall",
			Supporting: "bookshelves, leather furniture, warm wood tones",
		},
	}

	wallClockRoom = models.RoomContext{
		RoomType:   "living room or dining room",
		RoomDesc:   "well-appointed room with classic style",
		Placement:  "mounted prominently on the wall at eye level",
		Supporting: "complementary furniture below, balanced room composition",
	}

	mantelClockRoom = models.RoomContext{
		RoomType:   "living room",
		RoomDesc:   "cozy living room with fireplace",
		Placement:  "displayed elegantly on the fireplace mantel",
		Supporting: "comfortable seating, fireplace, the clock as a mantel centerpiece",
	}

	clockRoom = models.RoomContext{
		RoomType:   "living room or study",
		RoomDesc:   "refined interior space",
		Placement:  "positioned prominently on a side table or shelf",
		Supporting: "tasteful furniture, the clock clearly visible",
	}

	defaultRoom = models.RoomContext{
		RoomType:   "living room or dining room",
		RoomDesc:   "beautifully appointed room with elegant furnishings",
		Placement:  "positioned prominently as a featured piece",
		Supporting: "complementary furniture and sophisticated decor",
	}
)

// Candidates returns the candidate set for a furniture type. Dispatch uses
// substring checks on the type name and is deterministic. The returned slice
// is a copy and never empty.
func Candidates(furnitureType string) []models.RoomContext {
	var set []models.RoomContext
	switch {
	case strings.Contains(furnitureType, "wine") || strings.Contains(furnitureType, "bar"):
		set = wineBarRooms
	case strings.Contains(furnitureType, "curio") || strings.Contains(furnitureType, "display"):
		set = displayRooms
	case strings.Contains(furnitureType, "grandfather") || strings.Contains(furnitureType, "floor"):
		set = floorClockRooms
	case strings.Contains(furnitureType, "wall") && strings.Contains(furnitureType, "clock"):
		set = []models.RoomContext{wallClockRoom}
	case strings.Contains(furnitureType, "mantel"):
		set = []models.RoomContext{mantelClockRoom}
	case strings.Contains(furnitureType, "clock"):
		set = []models.RoomContext{clockRoom}
	default:
		set = []models.RoomContext{defaultRoom}
	}
	out := make([]models.RoomContext, len(set))
	copy(out, set)
	return out
}

// Selector picks uniformly among the candidates for a furniture type.
// Safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector drawing from rng. A nil rng is replaced with
// a time-seeded source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Selector{rng: rng}
}

// NewSeededSelector returns a Selector with a reproducible sequence.
func NewSeededSelector(seed int64) *Selector {
	return NewSelector(rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15)))
}

// Select returns one RoomContext for furnitureType.
func (s *Selector) Select(furnitureType string) models.RoomContext {
	set := Candidates(furnitureType)
	if len(set) == 1 {
		return set[0]
	}
	s.mu.Lock()
	i := s.rng.IntN(len(set))
	s.mu.Unlock()
	return set[i]
}
