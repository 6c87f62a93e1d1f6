package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

const (
	OmisePreauthName = "omise_card"
	OmiseCaptureName = "omise_card_capture"
)

var (
	ErrChargeFailed   = errors.New("charge failed")
	ErrMissingSource  = errors.New("missing card token")
	ErrChargeNotFinal = errors.New("charge not settled")
)

// ChargeAPI is the part of the Omise API the card variants use.
type ChargeAPI interface {
	CreateCharge(op *operations.CreateCharge) (*omise.Charge, error)
	CaptureCharge(chargeID string) (*omise.Charge, error)
	ReverseCharge(chargeID string) (*omise.Charge, error)
	CreateRefund(op *operations.CreateRefund) (*omise.Refund, error)
}

type omiseClient struct {
	c *omise.Client
}

func NewOmiseClient(publicKey, secretKey string) (ChargeAPI, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("create omise client: %w", err)
	}
	return &omiseClient{c: c}, nil
}

func (o *omiseClient) CreateCharge(op *operations.CreateCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	if err := o.c.Do(ch, op); err != nil {
		return nil, err
	}
	return ch, nil
}

func (o *omiseClient) CaptureCharge(chargeID string) (*omise.Charge, error) {
	ch := &omise.Charge{}
	if err := o.c.Do(ch, &operations.CaptureCharge{ChargeID: chargeID}); err != nil {
		return nil, err
	}
	return ch, nil
}

func (o *omiseClient) ReverseCharge(chargeID string) (*omise.Charge, error) {
	ch := &omise.Charge{}
	if err := o.c.Do(ch, &operations.ReverseCharge{ChargeID: chargeID}); err != nil {
		return nil, err
	}
	return ch, nil
}

func (o *omiseClient) CreateRefund(op *operations.CreateRefund) (*omise.Refund, error) {
	r := &omise.Refund{}
	if err := o.c.Do(r, op); err != nil {
		return nil, err
	}
	return r, nil
}

// OmiseCard charges a tokenized card. With preauth it places a hold at
// checkout and captures it on finalize; otherwise it charges on finalize.
type OmiseCard struct {
	api     ChargeAPI
	preauth bool
}

func NewOmiseCard(api ChargeAPI, preauth bool) *OmiseCard {
	return &OmiseCard{api: api, preauth: preauth}
}

func (o *OmiseCard) Name() string {
	if o.preauth {
		return OmisePreauthName
	}
	return OmiseCaptureName
}

func (o *OmiseCard) Capabilities() domain.Capabilities {
	return domain.Capabilities{RequiresPreauth: o.preauth}
}

func (o *OmiseCard) Authorize(ctx context.Context, order *domain.Order) (string, error) {
	ch, err := o.charge(order, false)
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (o *OmiseCard) Capture(ctx context.Context, order *domain.Order, token string) (domain.CaptureResult, error) {
	var (
		ch  *omise.Charge
		err error
	)
	if token != "" {
		ch, err = o.api.CaptureCharge(token)
		if err == nil {
			err = chargeOutcome(ch)
		}
	} else {
		ch, err = o.charge(order, true)
	}
	if err != nil {
		return domain.CaptureResult{}, err
	}

	if string(ch.Status) != "successful" {
		return domain.CaptureResult{}, fmt.Errorf("charge %s is %s: %w", ch.ID, ch.Status, ErrChargeNotFinal)
	}
	return domain.CaptureResult{Settlement: domain.SettlementComplete, Token: ch.ID}, nil
}

// Refund voids an uncaptured hold, or refunds a captured charge.
func (o *OmiseCard) Refund(ctx context.Context, order *domain.Order, token string, amount *decimal.Decimal) error {
	if token == "" {
		return fmt.Errorf("refund order %s: no charge recorded", order.ID)
	}

	if order.Status != domain.StatusConfirmed {
		if _, err := o.api.ReverseCharge(token); err != nil {
			return fmt.Errorf("reverse charge: %w", err)
		}
		return nil
	}

	refund := order.Total
	if amount != nil {
		refund = *amount
	}
	_, err := o.api.CreateRefund(&operations.CreateRefund{
		ChargeID: token,
		Amount:   minorUnits(refund),
		Metadata: map[string]interface{}{"order_id": order.ID.String()},
	})
	if err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	return nil
}

func (o *OmiseCard) charge(order *domain.Order, capture bool) (*omise.Charge, error) {
	if order.PaymentSource == "" {
		return nil, ErrMissingSource
	}

	ch, err := o.api.CreateCharge(&operations.CreateCharge{
		Amount:      minorUnits(order.Total),
		Currency:    strings.ToLower(order.Currency),
		Card:        order.PaymentSource,
		DontCapture: !capture,
		Metadata:    map[string]interface{}{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	if err := chargeOutcome(ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func chargeOutcome(ch *omise.Charge) error {
	if string(ch.Status) != "failed" {
		return nil
	}
	code := "unknown"
	if ch.FailureCode != nil {
		code = *ch.FailureCode
	}
	return fmt.Errorf("charge %s (%s): %w", ch.ID, code, ErrChargeFailed)
}

// minorUnits converts an amount to the smallest currency unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
