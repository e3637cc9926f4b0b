package model

import "time"

type Book struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Title     string    `json:"title" bson:"title" validate:"required,min=1,max=200"`
	Price     float64   `json:"price" bson:"price" validate:"gte=0"`
	Pages     int       `json:"pages" bson:"pages" validate:"gt=0"`
	AuthorID  string    `json:"author_id" bson:"author_id" validate:"required,mongodb"`
	GenreIDs  []string  `json:"genre_ids,omitempty" bson:"genre_ids,omitempty" validate:"omitempty,dive,mongodb"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type BookUpdate struct {
	Title    *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Price    *float64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	Pages    *int      `json:"pages,omitempty" validate:"omitempty,gt=0"`
	AuthorID *string   `json:"author_id,omitempty" validate:"omitempty,mongodb"`
	GenreIDs *[]string `json:"genre_ids,omitempty" validate:"omitempty,dive,mongodb"`
}
