package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Ashenafi-pixel/trustcade-rewards/errs"
)

// Status is the fulfillment state of a win. Transitions only move forward, one step at a time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerified  Status = "verified"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// next returns the single status that may follow s.
func (s Status) next() (Status, bool) {
	switch s {
	case StatusPending:
		return StatusVerified, true
	case StatusVerified:
		return StatusShipped, true
	case StatusShipped:
		return StatusDelivered, true
	}
	return "", false
}

// SpinRecord is one spin. The prize fields are a snapshot taken at spin time.
type SpinRecord struct {
	ID            string          `json:"id"`
	ParticipantID string          `json:"participantId"`
	PrizeID       string          `json:"prizeId"`
	PrizeName     string          `json:"prizeName"`
	PrizeValue    decimal.Decimal `json:"prizeValue"`
	WinID         string          `json:"winId,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// WinRecord is created for every spin that awards a prize with value > 0.
type WinRecord struct {
	ID                   string          `json:"id"`
	ParticipantID        string          `json:"participantId"`
	SpinID               string          `json:"spinId"`
	PrizeID              string          `json:"prizeId"`
	PrizeName            string          `json:"prizeName"`
	PrizeValue           decimal.Decimal `json:"prizeValue"`
	ClaimCode            string          `json:"claimCode"`
	Status               Status          `json:"status"`
	RequiresVerification bool            `json:"requiresVerification"`
	CreatedAt            time.Time       `json:"createdAt"`
	ClaimedAt            *time.Time      `json:"claimedAt,omitempty"`
	ShippedAt            *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt          *time.Time      `json:"deliveredAt,omitempty"`
	TrackingNumber       string          `json:"trackingNumber,omitempty"`
	Claim                *ClaimDetails   `json:"claim,omitempty"`
}

func (w WinRecord) clone() WinRecord {
	if w.Claim != nil {
		c := *w.Claim
		w.Claim = &c
	}
	return w
}

// ClaimDetails is the shipping form submitted with a claim.
type ClaimDetails struct {
	FullName        string `json:"fullName" validate:"required,min=2,max=120"`
	ShippingAddress string `json:"shippingAddress" validate:"required,min=5,max=500"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,min=7,max=32"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
}

func (d ClaimDetails) trimmed() ClaimDetails {
	d.FullName = strings.TrimSpace(d.FullName)
	d.ShippingAddress = strings.TrimSpace(d.ShippingAddress)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Email = strings.TrimSpace(d.Email)
	return d
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		d := sl.Current().Interface().(ClaimDetails)
		if d.Phone == "" && d.Email == "" {
			sl.ReportError(d.Phone, "Phone", "phone", "phone_or_email", "")
		}
	}, ClaimDetails{})
	return v
}

// ValidateClaimDetails requires a full name, a shipping address and a phone or email.
func ValidateClaimDetails(d ClaimDetails) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
	}
	return &errs.Error{Kind: errs.KindValidation, Op: "ledger.ValidateClaimDetails", Msg: strings.Join(msgs, ", ")}
}
