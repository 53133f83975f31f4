package calendar_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/calendar"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func render(t *testing.T, cal calendar.Calendar) string {
	t.Helper()
	var buf bytes.Buffer
	if err := calendar.Write(&buf, cal, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return buf.String()
}

func TestWrite_Basic(t *testing.T) {
	id := primitive.NewObjectID()
	loc := time.FixedZone("CET", 3600)
	out := render(t, calendar.Calendar{
		Name:    "My events",
		BaseURL: "https://hub.example.com",
		Entries: []calendar.Entry{{
			ID:          id,
			Title:       "Potluck; bring food, drinks",
			Description: "Line one\nLine two",
			Location:    `C:\hall`,
			Start:       time.Date(2026, 11, 1, 19, 0, 0, 0, loc),
			End:         time.Date(2026, 11, 1, 21, 0, 0, 0, loc),
		}},
	})

	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"VERSION:2.0\r\n",
		"X-WR-CALNAME:My events\r\n",
		"UID:" + calendar.UID("https://hub.example.com", id) + "\r\n",
		"DTSTAMP:20261001T120000Z\r\n",
		"DTSTART:20261101T180000Z\r\n",
		"DTEND:20261101T200000Z\r\n",
		`SUMMARY:Potluck\; bring food\, drinks` + "\r\n",
		`DESCRIPTION:Line one\nLine two` + "\r\n",
		`LOCATION:C:\\hall` + "\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
	if strings.Count(out, "BEGIN:VEVENT") != 1 {
		t.Error("expected exactly one VEVENT")
	}
}

func TestWrite_Folding(t *testing.T) {
	long := strings.Repeat("é", 100)
	out := render(t, calendar.Calendar{Entries: []calendar.Entry{{
		ID:    primitive.NewObjectID(),
		Title: long,
		Start: time.Now(),
		End:   time.Now(),
	}}})

	var unfolded strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		if len(line) > 75 {
			t.Errorf("line longer than 75 octets: %d", len(line))
		}
		if strings.HasPrefix(line, " ") {
			unfolded.WriteString(line[1:])
			continue
		}
		unfolded.WriteString("\n" + line)
	}
	if !strings.Contains(unfolded.String(), "SUMMARY:"+long) {
		t.Error("expected folded summary to unfold to the original text")
	}
}

func TestUID_Stable(t *testing.T) {
	id := primitive.NewObjectID()
	if calendar.UID("https://a", id) != calendar.UID("https://a", id) {
		t.Error("expected stable uid")
	}
	if calendar.UID("https://a", id) == calendar.UID("https://a", primitive.NewObjectID()) {
		t.Error("expected distinct uids for distinct events")
	}
}
