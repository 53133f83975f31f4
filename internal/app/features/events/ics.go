// internal/app/features/events/ics.go
package events

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/store/queries/eventqueries"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/authz"
	"github.com/dalemusser/eventhub/internal/app/system/calendar"
	"github.com/dalemusser/eventhub/internal/app/system/feedtoken"
	"github.com/dalemusser/eventhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/app/system/visibility"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) entry(it eventqueries.Item) calendar.Entry {
	return calendar.Entry{
		ID:          it.ID,
		Title:       it.Title,
		Description: htmlsanitize.StripTags(it.Description),
		Location:    it.Location,
		GroupName:   it.GroupName,
		Start:       it.StartDate,
		End:         it.EndDate,
		Updated:     it.UpdatedAt,
		URL:         h.BaseURL + "/events/" + it.ID.Hex(),
	}
}

func (h *Handler) writeCalendar(w http.ResponseWriter, r *http.Request, filename string, cal calendar.Calendar) {
	cal.BaseURL = h.BaseURL
	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	if err := calendar.Write(w, cal, time.Now()); err != nil {
		// Headers are gone by now; all we can do is log.
		h.Log.Warn("write calendar failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// ServeEventICS handles GET /events/{id}/calendar.ics.
func (h *Handler) ServeEventICS(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	acc, ok := h.loadEvent(ctx, w, r, sc)
	if !ok {
		return
	}
	d, err := h.detail(ctx, sc, acc)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load event detail failed", err, "")
		return
	}
	h.writeCalendar(w, r, "event-"+acc.Event.ID.Hex()+".ics", calendar.Calendar{
		Name:    d.Title,
		Entries: []calendar.Entry{h.entry(d.Item)},
	})
}

// ServeExportICS handles GET /events/export.ics. It exports the same events
// GET /events would list for the same query.
func (h *Handler) ServeExportICS(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireUser(w, r)
	if !ok {
		return
	}
	f, ok := filterFromRequest(r)
	if !ok {
		uierrors.BadRequest(w, "Invalid group id.")
		return
	}
	if f.Limit == 0 {
		f.Limit = eventqueries.MaxLimit
	}

	name := "All events"
	if normalize.Flag(query.Get(r, "subscribed")) {
		name = "My events"
	}
	h.exportFor(w, r, sc, f, name, "events.ics")
}

// ServeFeed handles GET /calendar/{token}.ics. The token names a user; the
// gate still decides whether that user may read anything, so a deactivated
// account's feed stops working.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	if h.Feeds == nil {
		uierrors.NotFound(w, "Calendar feed")
		return
	}
	token := strings.TrimSuffix(chi.URLParam(r, "token"), ".ics")

	uid, err := h.Feeds.Parse(token)
	if err != nil {
		if errors.Is(err, feedtoken.ErrInvalidToken) {
			h.Log.Info("calendar feed token rejected", zap.Error(err))
			uierrors.NotFound(w, "Calendar feed")
			return
		}
		h.ErrLog.LogServerError(w, r, "parse feed token failed", err, "")
		return
	}

	sc, ok := h.Gates.RequireFor(w, r, &auth.SessionUser{ID: uid.Hex()}, authz.Requirement{})
	if !ok {
		return
	}
	h.exportFor(w, r, sc, eventqueries.Filter{
		SubscribedOnly: true,
		Limit:          eventqueries.MaxLimit,
	}, "Event Hub: "+sc.Name, "eventhub.ics")
}

func (h *Handler) exportFor(w http.ResponseWriter, r *http.Request, sc authz.SessionContext, f eventqueries.Filter, name, filename string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := eventqueries.List(ctx, h.DB, visibility.For(sc), f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list events for export failed", err, "")
		return
	}
	cal := calendar.Calendar{Name: name, Entries: make([]calendar.Entry, 0, len(items))}
	for _, it := range items {
		cal.Entries = append(cal.Entries, h.entry(it))
	}
	h.writeCalendar(w, r, filename, cal)
}
