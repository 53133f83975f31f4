// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a community that users join and that owns events.
//
// NOTE:
//   - Visible controls discovery by non-members. Members keep access to a
//     hidden group.
//   - CreatedBy is kept for audit; it does not grant ownership. Group
//     administration comes from ADMIN memberships.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Visible     bool               `bson:"visible" json:"visible"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
