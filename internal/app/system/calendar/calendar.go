// Package calendar writes iCalendar (RFC 5545) documents for event export
// and feeds.
package calendar

import (
	"bufio"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ContentType = "text/calendar; charset=utf-8"
	prodID      = "-//eventhub//calendar export//EN"
	maxLine     = 75 // octets, excluding CRLF
	stampLayout = "20060102T150405Z"
)

// Entry is one VEVENT.
type Entry struct {
	ID          primitive.ObjectID
	Title       string
	Description string
	Location    string
	GroupName   string
	Start       time.Time
	End         time.Time
	Updated     time.Time
	URL         string
}

// Calendar is a VCALENDAR with a display name.
type Calendar struct {
	Name    string
	BaseURL string
	Entries []Entry
}

// UID returns a stable identifier for an event so re-exports update the
// same calendar entry instead of duplicating it.
func UID(baseURL string, id primitive.ObjectID) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(baseURL+"/events/"+id.Hex())).String()
}

// Write renders cal to w.
func Write(w io.Writer, cal Calendar, now time.Time) error {
	bw := bufio.NewWriter(w)
	lw := lineWriter{w: bw}

	lw.prop("BEGIN", "VCALENDAR")
	lw.prop("VERSION", "2.0")
	lw.prop("PRODID", prodID)
	lw.prop("CALSCALE", "GREGORIAN")
	lw.prop("METHOD", "PUBLISH")
	if cal.Name != "" {
		lw.prop("X-WR-CALNAME", escape(cal.Name))
	}

	stamp := now.UTC().Format(stampLayout)
	for _, e := range cal.Entries {
		lw.prop("BEGIN", "VEVENT")
		lw.prop("UID", UID(cal.BaseURL, e.ID))
		lw.prop("DTSTAMP", stamp)
		lw.prop("DTSTART", e.Start.UTC().Format(stampLayout))
		lw.prop("DTEND", e.End.UTC().Format(stampLayout))
		lw.prop("SUMMARY", escape(e.Title))
		if e.Description != "" {
			lw.prop("DESCRIPTION", escape(e.Description))
		}
		if e.Location != "" {
			lw.prop("LOCATION", escape(e.Location))
		}
		if e.GroupName != "" {
			lw.prop("CATEGORIES", escape(e.GroupName))
		}
		if !e.Updated.IsZero() {
			lw.prop("LAST-MODIFIED", e.Updated.UTC().Format(stampLayout))
		}
		if e.URL != "" {
			lw.prop("URL", e.URL)
		}
		lw.prop("END", "VEVENT")
	}
	lw.prop("END", "VCALENDAR")

	if lw.err != nil {
		return lw.err
	}
	return bw.Flush()
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

func escape(s string) string {
	return escaper.Replace(s)
}

type lineWriter struct {
	w   *bufio.Writer
	err error
}

// prop writes NAME:value folded at 75 octets without splitting a UTF-8
// sequence. Continuation lines start with a single space.
func (lw *lineWriter) prop(name, value string) {
	if lw.err != nil {
		return
	}
	line := name + ":" + value
	limit := maxLine
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		lw.write(line[:cut] + "\r\n ")
		line = line[cut:]
		limit = maxLine - 1
	}
	lw.write(line + "\r\n")
}

func (lw *lineWriter) write(s string) {
	if lw.err == nil {
		_, lw.err = lw.w.WriteString(s)
	}
}
