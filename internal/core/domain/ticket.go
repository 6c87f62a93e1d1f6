package domain

import (
	"time"

	"github.com/google/uuid"
)

type SaleChannel string

const (
	SoldAsWaiting              SaleChannel = "waiting"
	SoldAsPresaleOnline        SaleChannel = "presale_online"
	SoldAsPresaleOnlineWaiting SaleChannel = "presale_online_waiting"
	SoldAsPresaleDoor          SaleChannel = "presale_door"
	SoldAsDoor                 SaleChannel = "door"
	SoldAsRefunded             SaleChannel = "refunded"
)

type Ticket struct {
	ID           uuid.UUID
	EventID      uuid.UUID
	PriceClassID uuid.UUID
	OrderID      uuid.UUID
	// Seat is nil for free-seating events.
	Seat      *int
	SoldAs    SaleChannel
	Email     string
	Activated bool
	CreatedAt time.Time
}

func (t *Ticket) IsSold() bool {
	return t.SoldAs != SoldAsWaiting && t.SoldAs != SoldAsRefunded
}
