package status

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		in         string
		want       string
		validation bool
	}{
		{in: "SUCCESS", want: Success},
		{in: "successful", want: Success},
		{in: "Completed", want: Success},
		{in: "SETTLED", want: Success},
		{in: "paid", want: Success},
		{in: "FAILED", want: Failed},
		{in: "declined", want: Failed},
		{in: "TIMEOUT", want: Failed},
		{in: "expired", want: Failed},
		{in: "PENDING", want: Pending},
		{in: "in_progress", want: Pending},
		{in: "queued", want: Pending},
		{in: "WaitingForOTP", want: Pending, validation: true},
		{in: "waiting_for_otp", want: Pending, validation: true},
		{in: "OTP_REQUIRED", want: Pending, validation: true},
		{in: "pending_validation", want: Pending, validation: true},
		{in: "  confirmed  ", want: Success},
		{in: "", want: Pending},
		{in: "   ", want: Pending},
		{in: "SOMETHING_NEW", want: Pending},
	}

	for _, tt := range tests {
		got, validation := n.Normalize(tt.in)
		if got != tt.want || validation != tt.validation {
			t.Fatalf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.in, got, validation, tt.want, tt.validation)
		}
	}
}

func TestNormalizeOverrides(t *testing.T) {
	n := NewNormalizer(map[string]Mapped{
		"escalated": {Status: Failed},
		"PAID":      {Status: Pending, NeedsValidation: true},
	})

	if got, _ := n.Normalize("ESCALATED"); got != Failed {
		t.Fatalf("expected override to map ESCALATED to FAILED, got %q", got)
	}
	got, validation := n.Normalize("paid")
	if got != Pending || !validation {
		t.Fatalf("expected override to replace default PAID mapping, got (%q, %v)", got, validation)
	}
	// Defaults not touched by the override must survive.
	if got, _ := n.Normalize("SETTLED"); got != Success {
		t.Fatalf("expected SETTLED to stay SUCCESS, got %q", got)
	}
}

func TestNormalizerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status_map.json")
	payload := `{"ON_HOLD": {"status": "PENDING", "needs_validation": true}}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write status map: %v", err)
	}

	n, err := NewNormalizerFromFile(path)
	if err != nil {
		t.Fatalf("NewNormalizerFromFile: %v", err)
	}
	got, validation := n.Normalize("on_hold")
	if got != Pending || !validation {
		t.Fatalf("expected file override to apply, got (%q, %v)", got, validation)
	}

	if _, err := NewNormalizerFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing status map file")
	}

	n, err = NewNormalizerFromFile("")
	if err != nil {
		t.Fatalf("NewNormalizerFromFile(\"\"): %v", err)
	}
	if got, _ := n.Normalize("SUCCESS"); got != Success {
		t.Fatalf("expected empty path to yield defaults")
	}
}

func TestShouldUpdate(t *testing.T) {
	tests := []struct {
		current  string
		proposed string
		override bool
		want     bool
	}{
		// Terminal statuses are sticky.
		{current: "SUCCESS", proposed: "PENDING", want: false},
		{current: "SUCCESS", proposed: "FAILED", want: false},
		{current: "FAILED", proposed: "SUCCESS", want: false},
		// Re-applying the same status is idempotent.
		{current: "SUCCESS", proposed: "SUCCESS", want: true},
		{current: "PENDING", proposed: "PENDING", want: true},
		// Forward movement through the lattice.
		{current: "INITIATED", proposed: "PENDING", want: true},
		{current: "INITIATED", proposed: "FAILED", want: true},
		{current: "PENDING", proposed: "PROCESSING", want: true},
		{current: "PROCESSING", proposed: "SUCCESS", want: true},
		{current: "PENDING", proposed: "FAILED", want: true},
		// Backward movement is rejected.
		{current: "PROCESSING", proposed: "PENDING", want: false},
		{current: "PENDING", proposed: "INITIATED", want: false},
		// Unknown proposed statuses rank 0 and lose.
		{current: "PENDING", proposed: "SOMETHING", want: false},
		// Unknown current statuses rank 0 and admit anything known.
		{current: "", proposed: "PENDING", want: true},
		// Override bypasses every guard.
		{current: "SUCCESS", proposed: "PENDING", override: true, want: true},
		{current: "FAILED", proposed: "INITIATED", override: true, want: true},
	}

	for _, tt := range tests {
		if got := ShouldUpdate(tt.current, tt.proposed, tt.override); got != tt.want {
			t.Fatalf("ShouldUpdate(%q, %q, %v) = %v, want %v", tt.current, tt.proposed, tt.override, got, tt.want)
		}
	}
}

func TestUpdateFields(t *testing.T) {
	fields, ok := UpdateFields("PENDING", "SUCCESS", false)
	if !ok {
		t.Fatalf("expected PENDING -> SUCCESS to be admitted")
	}
	if got := fields["status"]; got != "SUCCESS" {
		t.Fatalf("expected status field SUCCESS, got %v", got)
	}
	if len(fields) != 1 {
		t.Fatalf("expected exactly one field, got %v", fields)
	}

	fields, ok = UpdateFields("SUCCESS", "PENDING", false)
	if ok || fields != nil {
		t.Fatalf("expected rejected transition to return (nil, false), got (%v, %v)", fields, ok)
	}
}

func TestRankLattice(t *testing.T) {
	if Rank("INITIATED") >= Rank("PENDING") {
		t.Fatalf("expected PENDING to outrank INITIATED")
	}
	if Rank("PENDING") >= Rank("PROCESSING") {
		t.Fatalf("expected PROCESSING to outrank PENDING")
	}
	if Rank("SUCCESS") != Rank("FAILED") {
		t.Fatalf("expected SUCCESS and FAILED to share the terminal rank")
	}
	if Rank("UNKNOWN") != 0 {
		t.Fatalf("expected unknown statuses to rank 0")
	}
	if !IsTerminal("SUCCESS") || !IsTerminal("FAILED") || IsTerminal("PENDING") {
		t.Fatalf("terminal classification broken")
	}
}
