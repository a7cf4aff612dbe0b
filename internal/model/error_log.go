package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrorLog represents a persisted error or warning entry raised by the
// engine (parse failure, compilation failure, rule evaluation failure)
// or by the HTTP surface.
type ErrorLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Level     string             `bson:"level" json:"level"`       // error, warning
	Category  string             `bson:"category" json:"category"` // parse, compile, eval, execution, api
	Message   string             `bson:"message" json:"message"`
	Details   string             `bson:"details,omitempty" json:"details,omitempty"`
}
