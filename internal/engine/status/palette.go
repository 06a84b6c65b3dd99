package status

import (
	"fmt"

	"upkeep/internal/domain"
)

// Palette derives display colors from an event's state. Colors are
// recomputed on every read and never stored.
type Palette struct {
	Upcoming   map[domain.Level]string `yaml:"upcoming" json:"upcoming"`
	Complete   map[domain.Level]string `yaml:"complete" json:"complete"`
	Incomplete string                  `yaml:"incomplete" json:"incomplete"`
	Emergency  string                  `yaml:"emergency" json:"emergency"`
}

func DefaultPalette() Palette {
	return Palette{
		Upcoming: map[domain.Level]string{
			domain.LevelA: "oklch(76.5% 0.177 163.223)",
			domain.LevelB: "oklch(85.2% 0.199 91.936)",
			domain.LevelC: "oklch(70.7% 0.165 254.624)",
			domain.LevelD: "oklch(71.4% 0.2063 306.703)",
		},
		Complete: map[domain.Level]string{
			domain.LevelA: "oklch(43.2% 0.095 166.913)",
			domain.LevelB: "oklch(68.1% 0.162 75.834)",
			domain.LevelC: "oklch(42.4% 0.199 265.638)",
			domain.LevelD: "oklch(43.8% 0.218 303.724)",
		},
		Incomplete: "oklch(44.4% 0.177 26.899)",
		Emergency:  "#000",
	}
}

func (p Palette) Validate() error {
	for _, l := range domain.PriorityOrder {
		if p.Upcoming[l] == "" {
			return fmt.Errorf("palette.upcoming.%s is required", l)
		}
		if p.Complete[l] == "" {
			return fmt.Errorf("palette.complete.%s is required", l)
		}
	}
	if p.Incomplete == "" || p.Emergency == "" {
		return fmt.Errorf("palette.incomplete and palette.emergency are required")
	}
	return nil
}

// Color returns the display color for e. Performed events use the complete
// palette, events still waiting for service use the upcoming palette.
func (p Palette) Color(e domain.Event) string {
	switch {
	case e.Status == domain.StatusIncomplete:
		return p.Incomplete
	case e.Status == domain.StatusEmergency, e.Level == domain.LevelE:
		return p.Emergency
	case e.Status == domain.StatusComplete, e.PerformedAt != nil:
		return p.Complete[e.Level]
	default:
		return p.Upcoming[e.Level]
	}
}

// Paint sets the derived color on every event in place.
func (p Palette) Paint(events []domain.Event) []domain.Event {
	for i := range events {
		events[i].Color = p.Color(events[i])
	}
	return events
}
