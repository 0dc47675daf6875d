package quote

import (
	"errors"
	"strings"
	"time"

	"github.com/danmuck/klarity/internal/catalog"
)

var (
	ErrMissingPatient = errors.New("quote: patient name is required")
	ErrNoChannel      = errors.New("quote: at least one delivery channel is required")
	ErrNoActs         = errors.New("quote: at least one act is required")
	ErrUnknownChannel = errors.New("quote: unknown delivery channel")
)

// Draft is a quote under edition in the practitioner editor.
type Draft struct {
	PatientName      string             `json:"patientName"`
	PatientEmail     string             `json:"patientEmail,omitempty"`
	Acts             []catalog.Act      `json:"acts"`
	CustomPrices     map[string]float64 `json:"customPrices"`
	DeliveryChannels []Channel          `json:"deliveryChannels"`
}

// NewDraft starts an empty draft sent by email and sms.
func NewDraft() Draft {
	return Draft{
		Acts:             []catalog.Act{},
		CustomPrices:     map[string]float64{},
		DeliveryChannels: []Channel{ChannelEmail, ChannelSMS},
	}
}

// AddAct appends act and seeds its custom price with the reference price
// unless a non-zero price is already set for the code.
func (d *Draft) AddAct(act catalog.Act) {
	d.Acts = append(d.Acts, act)
	if d.CustomPrices == nil {
		d.CustomPrices = map[string]float64{}
	}
	if d.CustomPrices[act.Code] == 0 {
		d.CustomPrices[act.Code] = catalog.ReferencePrice(act)
	}
}

// RemoveAct drops the act at index. Its custom price is kept for re-adds.
func (d *Draft) RemoveAct(index int) error {
	acts, err := removeAt(d.Acts, index)
	if err != nil {
		return err
	}
	d.Acts = acts
	return nil
}

func (d *Draft) SetPrice(code string, price float64) {
	if d.CustomPrices == nil {
		d.CustomPrices = map[string]float64{}
	}
	d.CustomPrices[code] = price
}

// ToggleChannel adds ch when absent and removes it when present.
func (d *Draft) ToggleChannel(ch Channel) error {
	if !ch.Valid() {
		return ErrUnknownChannel
	}
	for i, existing := range d.DeliveryChannels {
		if existing == ch {
			d.DeliveryChannels = append(d.DeliveryChannels[:i:i], d.DeliveryChannels[i+1:]...)
			return nil
		}
	}
	d.DeliveryChannels = append(d.DeliveryChannels, ch)
	return nil
}

// Total applies the custom price of each act, falling back to its reference price.
func (d Draft) Total() float64 {
	total := 0.0
	for _, act := range d.Acts {
		if price, ok := d.CustomPrices[act.Code]; ok {
			total += price
			continue
		}
		total += catalog.ReferencePrice(act)
	}
	return total
}

// ResteACharge is Total minus the reimbursement base, as shown in the editor summary.
func (d Draft) ResteACharge() float64 {
	return d.Total() - TotalBase(d.Acts)
}

// Validate checks patient, channels then acts, in that order.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.PatientName) == "" {
		return ErrMissingPatient
	}
	if len(d.DeliveryChannels) == 0 {
		return ErrNoChannel
	}
	for _, ch := range d.DeliveryChannels {
		if !ch.Valid() {
			return ErrUnknownChannel
		}
	}
	if len(d.Acts) == 0 {
		return ErrNoActs
	}
	return nil
}

// Build validates the draft and turns it into a sent quote whose link expires after ttl.
func (d Draft) Build(id string, now time.Time, ttl time.Duration) (Quote, error) {
	if err := d.Validate(); err != nil {
		return Quote{}, err
	}
	prices := make(map[string]float64, len(d.CustomPrices))
	for code, price := range d.CustomPrices {
		prices[code] = price
	}
	acts := make([]catalog.Act, len(d.Acts))
	copy(acts, d.Acts)
	channels := make([]Channel, len(d.DeliveryChannels))
	copy(channels, d.DeliveryChannels)
	expires := now.Add(ttl)

	return Quote{
		ID:               id,
		PatientName:      strings.TrimSpace(d.PatientName),
		PatientEmail:     strings.TrimSpace(d.PatientEmail),
		Date:             now,
		Status:           StatusSent,
		Acts:             acts,
		CustomPrices:     prices,
		Total:            d.Total(),
		LinkExpiresAt:    &expires,
		DeliveryChannels: channels,
	}, nil
}
