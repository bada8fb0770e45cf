package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNotFound is returned when a lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrStorageCorruption marks a persisted collection that cannot be parsed.
	ErrStorageCorruption = errors.New("storage corruption")
	// ErrUnauthorized is returned when a non-owner calls an owner-only operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput wraps argument errors the owner can fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicate is returned when a unique field already exists.
	ErrDuplicate = errors.New("duplicate")
)

// CorruptionError describes a malformed collection file.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt collection %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

func (e *CorruptionError) Is(target error) bool { return target == ErrStorageCorruption }

// DenialReason names the policy that refused a request.
type DenialReason string

const (
	DenyMaintenance DenialReason = "maintenance"
	DenyForceJoin   DenialReason = "force_join"
	DenyCooldown    DenialReason = "cooldown"
)

// Denial is a policy refusal. Remaining is set for cooldown, Missing for force-join.
type Denial struct {
	Reason    DenialReason
	Remaining time.Duration
	Missing   []ForceChannel
}

func (d *Denial) Error() string {
	switch d.Reason {
	case DenyCooldown:
		return fmt.Sprintf("policy denied: cooldown, %ds remaining", d.RemainingSeconds())
	case DenyForceJoin:
		return fmt.Sprintf("policy denied: %d channel(s) not joined", len(d.Missing))
	default:
		return "policy denied: " + string(d.Reason)
	}
}

// RemainingSeconds rounds the remaining wait up to whole seconds, never below zero.
func (d *Denial) RemainingSeconds() int {
	if d.Remaining <= 0 {
		return 0
	}
	return int(math.Ceil(d.Remaining.Seconds()))
}

// AsDenial unwraps a *Denial from err.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// DeliveryError wraps a messaging platform failure.
type DeliveryError struct {
	ChatID int64
	Op     string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s to %d: %v", e.Op, e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
