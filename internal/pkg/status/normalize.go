// Package status holds the provider-status normalization table and the
// collection state machine. Everything here is pure: no persistence, no
// I/O beyond loading a mapping override at construction.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Internal status enum. Collections additionally use INITIATED,
// PROCESSING and CANCELLED; the normalizer only ever emits these three.
const (
	Success = "SUCCESS"
	Failed  = "FAILED"
	Pending = "PENDING"
)

// Mapped is one normalization result: the internal status plus whether
// the provider is waiting for an OTP/challenge round.
type Mapped struct {
	Status          string `json:"status"`
	NeedsValidation bool   `json:"needs_validation"`
}

// defaultStatusMap maps uppercase provider statuses to internal ones.
// Unknown strings deliberately fall through to (PENDING, false): an
// unrecognized status must never be treated as success or failure.
var defaultStatusMap = map[string]Mapped{
	// Success indicators
	"SUCCESS":    {Success, false},
	"SUCCESSFUL": {Success, false},
	"COMPLETED":  {Success, false},
	"APPROVED":   {Success, false},
	"CONFIRMED":  {Success, false},
	"SETTLED":    {Success, false},
	"PAID":       {Success, false},
	"PROCESSED":  {Success, false},

	// Failed indicators
	"FAILED":    {Failed, false},
	"ERROR":     {Failed, false},
	"DECLINED":  {Failed, false},
	"REJECTED":  {Failed, false},
	"CANCELLED": {Failed, false},
	"TIMEOUT":   {Failed, false},
	"EXPIRED":   {Failed, false},
	"ABORTED":   {Failed, false},
	"INVALID":   {Failed, false},

	// Pending indicators
	"PENDING":     {Pending, false},
	"PROCESSING":  {Pending, false},
	"INITIATED":   {Pending, false},
	"IN_PROGRESS": {Pending, false},
	"AWAITING":    {Pending, false},
	"QUEUED":      {Pending, false},

	// OTP / validation required
	"WAITINGFOROTP":       {Pending, true},
	"WAITING_FOR_OTP":     {Pending, true},
	"OTP_PENDING":         {Pending, true},
	"PENDINGVALIDATION":   {Pending, true},
	"PENDING_VALIDATION":  {Pending, true},
	"VALIDATION_REQUIRED": {Pending, true},
	"AWAITING_VALIDATION": {Pending, true},
	"REQUIRES_OTP":        {Pending, true},
	"OTP_REQUIRED":        {Pending, true},
}

// Normalizer maps raw provider status strings onto the internal enum.
type Normalizer struct {
	table map[string]Mapped
}

// NewNormalizer builds a normalizer from the default table with the
// given overrides merged on top. Override keys are uppercased.
func NewNormalizer(overrides map[string]Mapped) *Normalizer {
	table := make(map[string]Mapped, len(defaultStatusMap)+len(overrides))
	for k, v := range defaultStatusMap {
		table[k] = v
	}
	for k, v := range overrides {
		table[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &Normalizer{table: table}
}

// NewNormalizerFromFile reads a JSON object of overrides
// ({"PROVIDERSTATUS": {"status": "...", "needs_validation": bool}})
// and merges it over the defaults. An empty path yields the defaults.
func NewNormalizerFromFile(path string) (*Normalizer, error) {
	if path == "" {
		return NewNormalizer(nil), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read status map %s: %w", path, err)
	}
	var overrides map[string]Mapped
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse status map %s: %w", path, err)
	}
	return NewNormalizer(overrides), nil
}

// Normalize maps a raw provider status onto (internal status,
// needs_validation). Empty or unknown input is (PENDING, false);
// this function never fails.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" {
		return Pending, false
	}
	if m, ok := n.table[key]; ok {
		return m.Status, m.NeedsValidation
	}
	return Pending, false
}

// Table returns a copy of the active mapping, for diagnostics.
func (n *Normalizer) Table() map[string]Mapped {
	out := make(map[string]Mapped, len(n.table))
	for k, v := range n.table {
		out[k] = v
	}
	return out
}
