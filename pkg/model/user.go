package model

import "time"

type User struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	FirstName string    `json:"first_name" bson:"first_name" validate:"required,min=1,max=100"`
	LastName  string    `json:"last_name" bson:"last_name" validate:"required,min=1,max=100"`
	Avatar    string    `json:"avatar,omitempty" bson:"avatar,omitempty" validate:"omitempty,url"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type UserUpdate struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Avatar    *string `json:"avatar,omitempty" validate:"omitempty,url"`
}
