package model

import (
	"fmt"
	"strings"
	"time"
)

// RunReport summarizes one ingestion run. It is returned by value and never persisted.
type RunReport struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Source    string        `json:"source,omitempty" yaml:"source,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	DryRun    bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Stopped   bool          `json:"stopped" yaml:"stopped"`

	Total          int `json:"total" yaml:"total"`
	Empty          int `json:"empty" yaml:"empty"`
	BatchDuplicate int `json:"batch_duplicate" yaml:"batch_duplicate"`

	Inserted          int `json:"inserted" yaml:"inserted"`
	InvalidMobile     int `json:"invalid_mobile" yaml:"invalid_mobile"`
	InvalidName       int `json:"invalid_name" yaml:"invalid_name"`
	Duplicate         int `json:"duplicate" yaml:"duplicate"`
	MissingBloodGroup int `json:"missing_blood_group" yaml:"missing_blood_group"`

	Geocoded int `json:"geocoded" yaml:"geocoded"`
	Fallback int `json:"fallback" yaml:"fallback"`
}

// Rejected returns the number of rows rejected for any reason.
func (r RunReport) Rejected() int {
	return r.InvalidMobile + r.InvalidName + r.Duplicate
}

// Processed returns the number of rows that reached a final outcome.
func (r RunReport) Processed() int {
	return r.Inserted + r.Rejected()
}

// Summary renders the report as a short human-readable block.
func (r RunReport) Summary() string {
	var b strings.Builder
	status := "completed"
	if r.Stopped {
		status = "stopped early"
	}
	fmt.Fprintf(&b, "Import %s (run %s)\n", status, r.RunID)
	if r.Source != "" {
		fmt.Fprintf(&b, "- Source: %s\n", r.Source)
	}
	fmt.Fprintf(&b, "- Rows read: %d (empty: %d, repeated in batch: %d)\n", r.Total, r.Empty, r.BatchDuplicate)
	fmt.Fprintf(&b, "- Inserted: %d (missing blood group: %d)\n", r.Inserted, r.MissingBloodGroup)
	fmt.Fprintf(&b, "- Rejected: %d (invalid name: %d, invalid mobile: %d, duplicate: %d)\n",
		r.Rejected(), r.InvalidName, r.InvalidMobile, r.Duplicate)
	fmt.Fprintf(&b, "- Located: %d geocoded, %d fallback\n", r.Geocoded, r.Fallback)
	fmt.Fprintf(&b, "- Duration: %s\n", r.Duration.Round(time.Millisecond))
	return b.String()
}
