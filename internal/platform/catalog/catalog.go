// Package catalog loads event and price-class reference data from YAML.
package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

var namespace = uuid.MustParse("5b0c6f0e-8f0d-4a53-9a3e-3f1f0c2b7d11")

type File struct {
	PriceClasses []PriceClassSpec `yaml:"price_classes"`
	Events       []EventSpec      `yaml:"events"`
}

type PriceClassSpec struct {
	Key                 string `yaml:"key"`
	ID                  string `yaml:"id"`
	Name                string `yaml:"name"`
	Price               string `yaml:"price"`
	Secret              bool   `yaml:"secret"`
	NotificationMessage string `yaml:"notification_message"`
}

type EventSpec struct {
	Key               string         `yaml:"key"`
	ID                string         `yaml:"id"`
	Name              string         `yaml:"name"`
	Start             time.Time      `yaml:"start"`
	Duration          time.Duration  `yaml:"duration"`
	VenueSeats        int            `yaml:"venue_seats"`
	CustomSeats       *int           `yaml:"custom_seats"`
	FreeSeating       bool           `yaml:"free_seating"`
	Inactive          bool           `yaml:"inactive"`
	NoPresale         bool           `yaml:"no_presale"`
	PresaleEndsBefore *time.Duration `yaml:"presale_ends_before"`
	NoDoorSelling     bool           `yaml:"no_door_selling"`
	PriceClasses      []string       `yaml:"price_classes"`
}

// Entry is one event with the price classes it offers.
type Entry struct {
	Event        domain.Event
	PriceClasses []domain.PriceClass
}

type Sink interface {
	SaveEvent(ctx context.Context, event domain.Event, priceClasses []domain.PriceClass) error
}

func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) ([]Entry, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	classes := make(map[string]domain.PriceClass, len(f.PriceClasses))
	for _, spec := range f.PriceClasses {
		if spec.Key == "" {
			return nil, fmt.Errorf("price class %q: key is required", spec.Name)
		}
		price, err := decimal.NewFromString(spec.Price)
		if err != nil {
			return nil, fmt.Errorf("price class %s: invalid price %q", spec.Key, spec.Price)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("price class %s: negative price", spec.Key)
		}
		id, err := resolveID(spec.ID, "price_class/"+spec.Key)
		if err != nil {
			return nil, fmt.Errorf("price class %s: %w", spec.Key, err)
		}
		classes[spec.Key] = domain.PriceClass{
			ID:                  id,
			Name:                spec.Name,
			Price:               price,
			Secret:              spec.Secret,
			NotificationMessage: spec.NotificationMessage,
		}
	}

	entries := make([]Entry, 0, len(f.Events))
	for _, spec := range f.Events {
		entry, err := spec.entry(classes)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (spec EventSpec) entry(classes map[string]domain.PriceClass) (Entry, error) {
	if spec.Key == "" {
		return Entry{}, fmt.Errorf("event %q: key is required", spec.Name)
	}
	if spec.VenueSeats < 0 {
		return Entry{}, fmt.Errorf("event %s: negative venue seats", spec.Key)
	}
	id, err := resolveID(spec.ID, "event/"+spec.Key)
	if err != nil {
		return Entry{}, fmt.Errorf("event %s: %w", spec.Key, err)
	}

	event := domain.Event{
		ID:                id,
		Name:              spec.Name,
		StartTime:         spec.Start.UTC(),
		Duration:          spec.Duration,
		VenueSeats:        spec.VenueSeats,
		CustomSeats:       spec.CustomSeats,
		TracksSeats:       !spec.FreeSeating,
		IsActive:          !spec.Inactive,
		AllowPresale:      !spec.NoPresale,
		PresaleEndsBefore: domain.DefaultPresaleEndsBefore,
		AllowDoorSelling:  !spec.NoDoorSelling,
	}
	if event.Duration <= 0 {
		event.Duration = 2 * time.Hour
	}
	if spec.PresaleEndsBefore != nil {
		event.PresaleEndsBefore = *spec.PresaleEndsBefore
	}

	var pcs []domain.PriceClass
	for _, key := range spec.PriceClasses {
		pc, ok := classes[key]
		if !ok {
			return Entry{}, fmt.Errorf("event %s: unknown price class %q", spec.Key, key)
		}
		pcs = append(pcs, pc)
		event.PriceClassIDs = append(event.PriceClassIDs, pc.ID)
	}

	return Entry{Event: event, PriceClasses: pcs}, nil
}

// Apply saves every entry into sink.
func Apply(ctx context.Context, sink Sink, entries []Entry) error {
	for _, e := range entries {
		if err := sink.SaveEvent(ctx, e.Event, e.PriceClasses); err != nil {
			return fmt.Errorf("save event %s: %w", e.Event.Name, err)
		}
	}
	return nil
}

// resolveID parses an explicit id or derives a stable one from the key, so
// reloading the same file updates rows instead of duplicating them.
func resolveID(explicit, key string) (uuid.UUID, error) {
	if explicit == "" {
		return uuid.NewSHA1(namespace, []byte(key)), nil
	}
	id, err := uuid.Parse(explicit)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", explicit)
	}
	return id, nil
}
