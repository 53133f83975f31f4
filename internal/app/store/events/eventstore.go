// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound = errors.New("event not found")
	// ErrInvalidRange is returned when an event would end before it starts.
	ErrInvalidRange  = errors.New("event end must not be before its start")
	errTitleRequired = errors.New("event title is required")
	errNoGroup       = errors.New("event must belong to a group")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// GetByID returns mongo.ErrNoDocuments when the event does not exist.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// Create validates and inserts e. Times are stored in UTC.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	e.Title = strings.TrimSpace(e.Title)
	switch {
	case e.Title == "":
		return models.Event{}, errTitleRequired
	case e.GroupID.IsZero():
		return models.Event{}, errNoGroup
	case e.EndDate.Before(e.StartDate):
		return models.Event{}, ErrInvalidRange
	}

	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.TitleCI = text.Fold(e.Title)
	e.StartDate = e.StartDate.UTC()
	e.EndDate = e.EndDate.UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// Update holds the editable fields. Nil fields are left unchanged.
type Update struct {
	Title       *string
	Description *string
	Location    *string
	StartDate   *time.Time
	EndDate     *time.Time
	Visible     *bool
}

// Update applies upd to the event. The resulting range is validated against
// the stored dates for whichever end is not being changed.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	cur, err := s.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return errTitleRequired
		}
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Location != nil {
		set["location"] = strings.TrimSpace(*upd.Location)
	}
	start, end := cur.StartDate, cur.EndDate
	if upd.StartDate != nil {
		start = upd.StartDate.UTC()
		set["start_date"] = start
	}
	if upd.EndDate != nil {
		end = upd.EndDate.UTC()
		set["end_date"] = end
	}
	if end.Before(start) {
		return ErrInvalidRange
	}
	if upd.Visible != nil {
		set["visible"] = *upd.Visible
	}

	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// IDsByGroup lists the ids of a group's events.
func (s *Store) IDsByGroup(ctx context.Context, groupID primitive.ObjectID) ([]primitive.ObjectID, error) {
	raw, err := s.c.Distinct(ctx, "_id", bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if oid, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, oid)
		}
	}
	return ids, nil
}

// DeleteByGroup removes all events of a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
