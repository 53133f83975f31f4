package events_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/calendar"
	"github.com/dalemusser/eventhub/internal/app/system/feedtoken"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestServeEventICS(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	w := seed(t, fixtures)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev := fixtures.CreateEvent(ctx, w.open.ID, "Picnic, in the park", true, time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC))

	rec := httptest.NewRecorder()
	handler.ServeEventICS(rec, get("/events/x/calendar.ics", w.outsider, "id", ev.ID.Hex()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != calendar.ContentType {
		t.Errorf("expected content type %q, got %q", calendar.ContentType, ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"SUMMARY:Picnic\\, in the park\r\n",
		"DTSTART:20300601T120000Z\r\n",
		"CATEGORIES:Open Group\r\n",
		"UID:" + calendar.UID(baseURL, ev.ID) + "\r\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected calendar to contain %q, got:\n%s", want, body)
		}
	}
}

func TestServeExportICS_Subscribed(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	w := seed(t, fixtures)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	soon := time.Now().Add(time.Hour)
	picked := fixtures.CreateEvent(ctx, w.open.ID, "Picked", true, soon)
	fixtures.CreateEvent(ctx, w.open.ID, "Skipped", true, soon)
	fixtures.Subscribe(ctx, picked.ID, w.member.ID)

	rec := httptest.NewRecorder()
	handler.ServeExportICS(rec, get("/events/export.ics?subscribed=1", w.member))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "SUMMARY:Picked") || strings.Contains(body, "SUMMARY:Skipped") {
		t.Errorf("expected only the subscribed event, got:\n%s", body)
	}
	if !strings.Contains(body, "X-WR-CALNAME:My events") {
		t.Errorf("expected calendar name for subscribed export, got:\n%s", body)
	}
}

func feedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/calendar/"+token+".ics", nil)
	return testutil.WithChiURLParam(req, "token", token+".ics")
}

func TestServeFeed(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	w := seed(t, fixtures)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev := fixtures.CreateEvent(ctx, w.open.ID, "Followed", true, time.Now().Add(time.Hour))
	fixtures.Subscribe(ctx, ev.ID, w.member.ID)

	token, _, err := handler.Feeds.Issue(w.member.ID)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeFeed(rec, feedRequest(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "SUMMARY:Followed") {
		t.Errorf("expected subscribed event in feed, got:\n%s", rec.Body.String())
	}

	// Deactivating the account revokes the feed.
	if _, err := fixtures.DB().Collection("users").UpdateOne(ctx,
		bson.M{"_id": w.member.ID}, bson.M{"$set": bson.M{"active": false}}); err != nil {
		t.Fatalf("UpdateOne failed: %v", err)
	}
	rec = httptest.NewRecorder()
	handler.ServeFeed(rec, feedRequest(token))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected deactivated account feed to be forbidden, got %d", rec.Code)
	}
}

func TestServeFeed_RejectsBadTokens(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	w := seed(t, fixtures)

	other, err := feedtoken.NewManager("some-other-secret", 0)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	forged, _, err := other.Issue(w.member.ID)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	for _, token := range []string{"garbage", forged} {
		rec := httptest.NewRecorder()
		handler.ServeFeed(rec, feedRequest(token))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d for token %q, got %d", http.StatusNotFound, token, rec.Code)
		}
	}

	handler.Feeds = nil
	rec := httptest.NewRecorder()
	handler.ServeFeed(rec, feedRequest("anything"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected disabled feeds to be not found, got %d", rec.Code)
	}
}

func TestServeFeed_UnknownUser(t *testing.T) {
	handler, _ := newTestHandler(t)

	token, _, err := handler.Feeds.Issue(primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeFeed(rec, feedRequest(token))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}
