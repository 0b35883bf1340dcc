package models

import (
	"fmt"
	"strings"
)

// Record is a single input stored on the device
type Record struct {
	ID        int    `json:"id"`        // Server-assigned, immutable
	Message   string `json:"message"`   // User-editable
	Timestamp string `json:"timestamp"` // Server-assigned display value
}

// String returns a one-line representation of the record
func (r Record) String() string {
	return fmt.Sprintf("#%d %q (%s)", r.ID, r.Message, r.Timestamp)
}

// IsBlank reports whether a message is empty or whitespace only.
// Blank messages are never sent to the device.
func IsBlank(message string) bool {
	return strings.TrimSpace(message) == ""
}

// FindRecord returns the index of the record with the given ID, or -1
func FindRecord(records []Record, id int) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
