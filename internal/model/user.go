package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User role constants.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a demo account gating write access to the ruleset repository —
// registering and updating rule sets requires a bearer token; evaluating
// expressions and validating rule sets does not (spec.md §1's core is
// pure and has no notion of identity).
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Role      string             `bson:"role,omitempty" json:"role,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
