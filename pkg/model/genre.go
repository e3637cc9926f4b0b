package model

import "time"

type Genre struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type GenreUpdate struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}
