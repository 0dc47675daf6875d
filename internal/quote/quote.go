package quote

import (
	"fmt"
	"math"
	"time"

	"github.com/danmuck/klarity/internal/catalog"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
)

func (s Status) Label() string {
	switch s {
	case StatusAccepted:
		return "Accepté"
	case StatusSent:
		return "Envoyé"
	default:
		return "Brouillon"
	}
}

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

// Quote is a practitioner quote as shared with the patient.
type Quote struct {
	ID               string             `json:"id"`
	PatientName      string             `json:"patientName"`
	PatientEmail     string             `json:"patientEmail,omitempty"`
	Date             time.Time          `json:"date"`
	Status           Status             `json:"status"`
	Acts             []catalog.Act      `json:"acts"`
	CustomPrices     map[string]float64 `json:"customPrices"`
	Total            float64            `json:"total"`
	MagicLinkToken   string             `json:"magicLinkToken,omitempty"`
	MagicLinkURL     string             `json:"magicLinkUrl,omitempty"`
	LinkExpiresAt    *time.Time         `json:"linkExpiresAt,omitempty"`
	OpenCount        int                `json:"openCount"`
	LastOpenedAt     *time.Time         `json:"lastOpenedAt"`
	DeliveryChannels []Channel          `json:"deliveryChannels"`
}

// BaseRemboursement sums the reimbursement base of the quoted acts.
func (q Quote) BaseRemboursement() float64 {
	return TotalBase(q.Acts)
}

// ResteACharge is what the patient pays above the reimbursement base, never negative.
func (q Quote) ResteACharge() float64 {
	return math.Max(0, q.Total-q.BaseRemboursement())
}

// Accept marks the quote accepted. Accepting twice is a no-op.
func (q *Quote) Accept() {
	q.Status = StatusAccepted
}

// Complication is the highest average province fee among acts, 200 when none is known.
func (q Quote) Complication() float64 {
	highest := 0.0
	for _, act := range q.Acts {
		highest = math.Max(highest, act.PriceAvgProvince)
	}
	if highest == 0 {
		return 200
	}
	return highest
}

// ActsLabel renders "1 acte" / "3 actes".
func (q Quote) ActsLabel() string {
	if len(q.Acts) > 1 {
		return fmt.Sprintf("%d actes", len(q.Acts))
	}
	return fmt.Sprintf("%d acte", len(q.Acts))
}

// PriceSignal classifies a practitioner fee against the average province fee.
type PriceSignal string

const (
	PriceFair PriceSignal = "fair"
	PriceLow  PriceSignal = "low"
	PriceHigh PriceSignal = "high"
)

// FairPrice reports high above 120% of the average province fee and low under
// 80%. High wins, so any fee on an act with no published average is high.
func FairPrice(custom float64, act catalog.Act) PriceSignal {
	if custom > act.PriceAvgProvince*1.2 {
		return PriceHigh
	}
	if custom < act.PriceAvgProvince*0.8 {
		return PriceLow
	}
	return PriceFair
}
