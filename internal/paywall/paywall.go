// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package paywall decides whether a client's public site is shown or
// replaced by the block screen. Nothing here is persisted: the outcome is
// recomputed from the wall clock on every request, so changing a client's
// trial length takes effect retroactively.
package paywall

import (
	"fmt"
	"math"
	"time"

	"sitefoundry/internal/models"
)

const (
	hourMs = int64(time.Hour / time.Millisecond)
	dayMs  = 24 * hourMs
)

// Status is the evaluated trial state of a client at a point in time.
type Status struct {
	// Blocked is true when the payment is pending and the trial is over.
	Blocked bool `json:"blocked"`
	// Expired is true when the trial window has elapsed, paid or not.
	Expired bool `json:"expired"`
	// Paid mirrors the payment status.
	Paid bool `json:"paid"`

	DaysRemaining    int64 `json:"daysRemaining"`
	DaysOverdue      int64 `json:"daysOverdue"`
	MinutesRemaining int64 `json:"minutesRemaining"`

	// Remaining is the time left in the trial, never negative.
	Remaining time.Duration `json:"-"`
}

// Evaluate computes the trial status with millisecond precision.
// A trial of zero hours is over the instant the client is created.
func Evaluate(now, createdAt time.Time, trialHours float64, payment models.PaymentStatus) Status {
	elapsed := now.Sub(createdAt).Milliseconds()
	trial := int64(math.Round(trialHours * float64(hourMs)))
	left := trial - elapsed

	s := Status{
		Expired: elapsed >= trial,
		Paid:    payment == models.PaymentPaid,
	}
	s.Blocked = payment == models.PaymentPending && s.Expired

	if left > 0 {
		s.Remaining = time.Duration(left) * time.Millisecond
		s.DaysRemaining = ceilDiv(left, dayMs)
		s.MinutesRemaining = ceilDiv(left, int64(time.Minute/time.Millisecond))
	}
	if s.Blocked {
		s.DaysOverdue = -left / dayMs
	}
	return s
}

// IsBlocked reports whether the block screen must replace the site.
func IsBlocked(now, createdAt time.Time, trialHours float64, payment models.PaymentStatus) bool {
	return Evaluate(now, createdAt, trialHours, payment).Blocked
}

// DaysRemaining is the number of started days left in the trial, 0 once over.
func DaysRemaining(now, createdAt time.Time, trialHours float64) int64 {
	return Evaluate(now, createdAt, trialHours, models.PaymentPending).DaysRemaining
}

// DaysOverdue is the number of whole days since the trial ended. It is
// only meaningful for blocked clients and is 0 otherwise.
func DaysOverdue(now, createdAt time.Time, trialHours float64, payment models.PaymentStatus) int64 {
	return Evaluate(now, createdAt, trialHours, payment).DaysOverdue
}

// Banner is the trial notice shown above a pending client's site. It is
// empty for paid or blocked clients.
func Banner(s Status) string {
	switch {
	case s.Paid || s.Blocked:
		return ""
	case s.Remaining > 24*time.Hour:
		return fmt.Sprintf("Período de teste: restam %d dias", s.DaysRemaining)
	case s.MinutesRemaining == 1:
		return "Período de teste: resta 1 minuto"
	default:
		return fmt.Sprintf("Período de teste: restam %d minutos", s.MinutesRemaining)
	}
}

// DefaultTrial converts the configured default trial into the hours stored
// on a newly created client. Unknown units are treated as hours; negative
// values clamp to zero.
func DefaultTrial(value int, unit models.TrialUnit) int {
	if value < 0 {
		return 0
	}
	return models.TrialSettings{Value: value, Unit: unit}.Hours()
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
