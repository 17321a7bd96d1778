package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
)

var maxPrice = decimal.RequireFromString("99999999.99")

func (t *Table) Validate() error {
	var result *multierror.Error
	if t.Number < 1 {
		result = multierror.Append(result, errors.New("number must be at least 1"))
	}
	if t.Capacity < 1 {
		result = multierror.Append(result, errors.New("capacity must be at least 1"))
	}
	if t.Status != "" && !t.Status.Valid() {
		result = multierror.Append(result, fmt.Errorf("unknown status %q", t.Status))
	}
	return flatten(result)
}

func (c *Category) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(c.Name) == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	return flatten(result)
}

func (m *MenuItem) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(m.Name) == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	if !m.Price.IsPositive() {
		result = multierror.Append(result, errors.New("price must be greater than zero"))
	}
	if m.Price.GreaterThan(maxPrice) {
		result = multierror.Append(result, fmt.Errorf("price must not exceed %s", maxPrice.StringFixed(2)))
	}
	if !m.Price.Equal(m.Price.Round(2)) {
		result = multierror.Append(result, errors.New("price must have at most 2 decimal places"))
	}
	if m.CategoryID == 0 {
		result = multierror.Append(result, errors.New("category_id is required"))
	}
	return flatten(result)
}

func (w *Waiter) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(w.Name) == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	if w.Age < 0 {
		result = multierror.Append(result, errors.New("age must not be negative"))
	}
	return flatten(result)
}

func (r *Reception) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(r.Name) == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	if len(r.ContactNumber) > 15 {
		result = multierror.Append(result, errors.New("contact_number must be at most 15 characters"))
	}
	return flatten(result)
}

func (r *Reservation) Validate() error {
	var result *multierror.Error
	if r.TableID == 0 {
		result = multierror.Append(result, errors.New("table_id is required"))
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		result = multierror.Append(result, errors.New("customer_name is required"))
	}
	if r.ReservationTime.IsZero() {
		result = multierror.Append(result, errors.New("reservation_time is required"))
	}
	if r.PartySize < 0 {
		result = multierror.Append(result, errors.New("capacity must not be negative"))
	}
	return flatten(result)
}

// flatten renders all collected problems on a single line so they read well
// inside an API error message.
func flatten(result *multierror.Error) error {
	if result == nil {
		return nil
	}
	result.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return strings.Join(msgs, "; ")
	}
	return result.ErrorOrNil()
}
