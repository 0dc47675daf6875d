package quote

import (
	"errors"
	"fmt"

	"github.com/danmuck/klarity/internal/catalog"
)

var ErrIndexOutOfRange = errors.New("quote: act index out of range")

// Cart is the patient-side simulated quote. The same act may appear twice.
type Cart struct {
	ID   string        `json:"id"`
	Acts []catalog.Act `json:"acts"`
}

func NewCart(id string) Cart {
	return Cart{ID: id, Acts: []catalog.Act{}}
}

func (c *Cart) Add(acts ...catalog.Act) {
	c.Acts = append(c.Acts, acts...)
}

// Remove drops the act at index, preserving order.
func (c *Cart) Remove(index int) error {
	acts, err := removeAt(c.Acts, index)
	if err != nil {
		return err
	}
	c.Acts = acts
	return nil
}

// TotalBase is the sum of reimbursement bases.
func (c Cart) TotalBase() float64 {
	return TotalBase(c.Acts)
}

func TotalBase(acts []catalog.Act) float64 {
	total := 0.0
	for _, act := range acts {
		total += act.BaseRemboursement
	}
	return total
}

func removeAt(acts []catalog.Act, index int) ([]catalog.Act, error) {
	if index < 0 || index >= len(acts) {
		return acts, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(acts))
	}
	out := make([]catalog.Act, 0, len(acts)-1)
	out = append(out, acts[:index]...)
	return append(out, acts[index+1:]...), nil
}
