package state

import (
	"github.com/yourusername/espinput-cli/internal/models"
)

// ClientState is an immutable snapshot of what the client knows about the device.
// Every transition returns a new snapshot; Items is never mutated in place.
type ClientState struct {
	Items          []models.Record `json:"items"`          // Device order, never sorted locally
	IsLoading      bool            `json:"isLoading"`      // True while a transport call is outstanding
	ErrorMessage   string          `json:"errorMessage"`   // Empty = absent
	SuccessMessage string          `json:"successMessage"` // Empty = absent
}

// NewClientState creates the session's initial state
func NewClientState() ClientState {
	return ClientState{
		Items: make([]models.Record, 0),
	}
}

// HasError returns true if an error message is set
func (s ClientState) HasError() bool {
	return s.ErrorMessage != ""
}

// HasSuccess returns true if a success message is set
func (s ClientState) HasSuccess() bool {
	return s.SuccessMessage != ""
}

// StartLoading marks a call as outstanding and clears the previous error.
// The success message is kept until the call completes.
func (s ClientState) StartLoading() ClientState {
	s.IsLoading = true
	s.ErrorMessage = ""
	return s
}

// FinishLoad replaces Items wholesale with the device's list.
// A list refresh sets no success message.
func (s ClientState) FinishLoad(items []models.Record) ClientState {
	s.Items = cloneRecords(items)
	s.IsLoading = false
	return s
}

// FinishAppend appends a device-returned record at the tail
func (s ClientState) FinishAppend(rec models.Record, msg string) ClientState {
	items := make([]models.Record, len(s.Items), len(s.Items)+1)
	copy(items, s.Items)
	s.Items = append(items, rec)
	return s.succeed(msg)
}

// FinishReplace swaps the item with the requested id for rec, even if the
// device echoed a different ID. Items keep their order; an unknown id leaves
// Items unchanged.
func (s ClientState) FinishReplace(id int, rec models.Record, msg string) ClientState {
	items := cloneRecords(s.Items)
	if idx := models.FindRecord(items, id); idx >= 0 {
		items[idx] = rec
	}
	s.Items = items
	return s.succeed(msg)
}

// FinishRemove drops the item with the given ID, if present
func (s ClientState) FinishRemove(id int, msg string) ClientState {
	items := make([]models.Record, 0, len(s.Items))
	for _, rec := range s.Items {
		if rec.ID != id {
			items = append(items, rec)
		}
	}
	s.Items = items
	return s.succeed(msg)
}

// Fail records a failure. Items are left untouched.
func (s ClientState) Fail(reason string) ClientState {
	s.IsLoading = false
	s.ErrorMessage = reason
	s.SuccessMessage = ""
	return s
}

// FinishDiscarded ends a call whose result is not folded
func (s ClientState) FinishDiscarded() ClientState {
	s.IsLoading = false
	return s
}

// ClearMessages clears both messages without touching Items or IsLoading
func (s ClientState) ClearMessages() ClientState {
	s.ErrorMessage = ""
	s.SuccessMessage = ""
	return s
}

func (s ClientState) succeed(msg string) ClientState {
	s.IsLoading = false
	s.ErrorMessage = ""
	s.SuccessMessage = msg
	return s
}

func cloneRecords(records []models.Record) []models.Record {
	result := make([]models.Record, len(records))
	copy(result, records)
	return result
}
