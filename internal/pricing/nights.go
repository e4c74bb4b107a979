package pricing

import (
	"fmt"
	"time"
)

// DefaultLateCheckoutCutoff is the local time-of-day after which a checkout
// is billed an extra night.
const DefaultLateCheckoutCutoff = 14 * time.Hour

const day = 24 * time.Hour

// StayWindow is the check-in and observed check-out instants of a stay.
type StayWindow struct {
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
}

// NightPolicy holds the hotel-specific rules for counting nights.
type NightPolicy struct {
	// LateCheckoutCutoff is measured from local midnight.
	LateCheckoutCutoff time.Duration
	// Location is the hotel's time zone. Nil means UTC.
	Location *time.Location
}

// DefaultNightPolicy returns the 14:00 cutoff in loc.
func DefaultNightPolicy(loc *time.Location) NightPolicy {
	return NightPolicy{LateCheckoutCutoff: DefaultLateCheckoutCutoff, Location: loc}
}

func (p NightPolicy) cutoff() time.Duration {
	if p.LateCheckoutCutoff <= 0 || p.LateCheckoutCutoff >= day {
		return DefaultLateCheckoutCutoff
	}
	return p.LateCheckoutCutoff
}

func (p NightPolicy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// IsLateCheckout reports whether t falls strictly after the cutoff on its local day.
func (p NightPolicy) IsLateCheckout(t time.Time) bool {
	local := t.In(p.location())
	h, m, s := local.Clock()
	sinceMidnight := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(local.Nanosecond())
	return sinceMidnight > p.cutoff()
}

// Nights converts a stay window into billable nights: whole calendar days
// between the local dates, at least one, plus one when the guest leaves
// after the late checkout cutoff.
func Nights(w StayWindow, p NightPolicy) (int, error) {
	if w.CheckIn.IsZero() || w.CheckOut.IsZero() {
		return 0, fmt.Errorf("%w: check-in and check-out are required", ErrInvalidStayWindow)
	}
	if w.CheckOut.Before(w.CheckIn) {
		return 0, fmt.Errorf("%w: check-out %s before check-in %s", ErrInvalidStayWindow,
			w.CheckOut.Format(time.RFC3339), w.CheckIn.Format(time.RFC3339))
	}
	loc := p.location()
	nights := int(civilDay(w.CheckOut.In(loc)) - civilDay(w.CheckIn.In(loc)))
	if nights < 1 {
		nights = 1
	}
	if p.IsLateCheckout(w.CheckOut) {
		nights++
	}
	return nights, nil
}

// civilDay numbers the local calendar date, ignoring DST-length days.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / int64(day/time.Second)
}
