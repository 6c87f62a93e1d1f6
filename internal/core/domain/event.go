package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultPresaleEndsBefore = time.Hour

type Event struct {
	ID                uuid.UUID
	Name              string
	StartTime         time.Time
	Duration          time.Duration
	VenueSeats        int
	CustomSeats       *int
	TracksSeats       bool
	IsActive          bool
	AllowPresale      bool
	PresaleEndsBefore time.Duration
	AllowDoorSelling  bool
	PriceClassIDs     []uuid.UUID
}

// TotalSeats is the per-event override when set, else the venue capacity.
func (e *Event) TotalSeats() int {
	if e.CustomSeats != nil {
		return *e.CustomSeats
	}
	return e.VenueSeats
}

func (e *Event) PresaleEndTime() time.Time {
	return e.StartTime.Add(-e.PresaleEndsBefore)
}

func (e *Event) HasEnded(now time.Time) bool {
	return !e.StartTime.Add(e.Duration).After(now)
}

func (e *Event) OffersPriceClass(id uuid.UUID) bool {
	for _, pc := range e.PriceClassIDs {
		if pc == id {
			return true
		}
	}
	return false
}

// OpenForPresale reports whether online buyers may reserve tickets at now.
func (e *Event) OpenForPresale(now time.Time) bool {
	return e.IsActive && e.AllowPresale && !e.HasEnded(now) && now.Before(e.PresaleEndTime())
}

// OpenForDoor reports whether door sales are allowed at now.
func (e *Event) OpenForDoor(now time.Time) bool {
	return e.IsActive && e.AllowDoorSelling && !e.HasEnded(now)
}

// DoorChannel is the sale channel of a box-office sale made at now.
func (e *Event) DoorChannel(now time.Time) SaleChannel {
	if now.Before(e.PresaleEndTime()) {
		return SoldAsPresaleDoor
	}
	return SoldAsDoor
}

type PriceClass struct {
	ID                  uuid.UUID
	Name                string
	Price               decimal.Decimal
	Secret              bool
	NotificationMessage string
}
