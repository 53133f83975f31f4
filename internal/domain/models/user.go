// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a platform account.
//
// NOTE:
//   - New accounts start inactive with ApprovedAt unset. An administrator
//     approves them, which sets Active and ApprovedAt.
//   - Group membership is not embedded here; see group_memberships.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string             `bson:"auth_method" json:"auth_method"` // see AllAuthMethods
	AuthReturnID string             `bson:"auth_return_id,omitempty" json:"-"` // Google subject id
	Role         Role               `bson:"role" json:"role"`
	Active       bool               `bson:"active" json:"active"`
	ApprovedAt   *time.Time         `bson:"approved_at,omitempty" json:"approved_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Pending reports whether the account is still waiting for approval.
func (u User) Pending() bool {
	return u.ApprovedAt == nil
}
