// internal/app/features/events/form.go
package events

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/normalize"
)

// defaultDuration is used when a new event has no end.
const defaultDuration = time.Hour

// Accepted date layouts. Values without a zone are taken as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s must be a date like 2025-06-01T18:00:00Z", field)
}

type eventInput struct {
	Title       string    `json:"title" label:"Title" validate:"required,max=200"`
	Description string    `json:"description" label:"Description" validate:"max=10000"`
	Location    string    `json:"location" label:"Location" validate:"max=300"`
	Start       time.Time `json:"start" label:"Start" validate:"required"`
	End         time.Time `json:"end" label:"End" validate:"gtefield=Start"`
}

// eventEditInput holds the text fields of a partial update. Absent fields
// are empty and skip validation.
type eventEditInput struct {
	Title       string `label:"Title" validate:"omitempty,max=200"`
	Description string `label:"Description" validate:"omitempty,max=10000"`
	Location    string `label:"Location" validate:"omitempty,max=300"`
}

func readEditForm(r *http.Request) eventEditInput {
	return eventEditInput{
		Title:       normalize.Name(r.PostFormValue("title")),
		Description: r.PostFormValue("description"),
		Location:    strings.TrimSpace(r.PostFormValue("location")),
	}
}

// readCreateForm reads a new event. A missing end means start plus an hour.
func readCreateForm(r *http.Request) (eventInput, error) {
	in := eventInput{
		Title:       normalize.Name(r.PostFormValue("title")),
		Description: r.PostFormValue("description"),
		Location:    strings.TrimSpace(r.PostFormValue("location")),
	}
	if raw := r.PostFormValue("start"); raw != "" {
		t, err := parseTime("Start", raw)
		if err != nil {
			return in, err
		}
		in.Start = t
	}
	if raw := r.PostFormValue("end"); raw != "" {
		t, err := parseTime("End", raw)
		if err != nil {
			return in, err
		}
		in.End = t
	} else if !in.Start.IsZero() {
		in.End = in.Start.Add(defaultDuration)
	}
	return in, nil
}

// present reports whether the form carried field at all.
func present(r *http.Request, field string) bool {
	_, ok := r.PostForm[field]
	return ok
}

// formVisible reads the visible field. A missing field means visible.
func formVisible(r *http.Request) bool {
	if !present(r, "visible") {
		return true
	}
	return normalize.Flag(r.PostFormValue("visible"))
}
