package metrics

import (
	"encoding/json"
	"fmt"
	"io"
)

// Export writes the schedule as an indented JSON document
func Export(w io.Writer, s Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode schedule %s: %w", s.PeriodKey, err)
	}
	return nil
}

// Import reads a schedule document written by Export
func Import(r io.Reader) (Schedule, error) {
	var s Schedule
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Schedule{}, fmt.Errorf("failed to decode schedule: %w", err)
	}
	if s.Horizon == "" || s.PeriodKey == "" {
		return Schedule{}, fmt.Errorf("schedule document is missing horizon or period key")
	}
	return s, nil
}
