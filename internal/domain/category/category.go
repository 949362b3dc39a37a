package category

import (
	"time"

	"github.com/geocoder89/blogapi/internal/query"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Name string `json:"name" binding:"required,max=60"`
}

type UpdateRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=60"`
}

func (c Category) QueryFields() map[string]any {
	return map[string]any{
		"id":        c.ID,
		"name":      c.Name,
		"createdAt": c.CreatedAt,
		"updatedAt": c.UpdatedAt,
	}
}

var Schema = query.Schema{
	Table: "categories",
	Fields: map[string]query.Field{
		"id":        {Column: "id", Kind: query.KindUUID},
		"name":      {Column: "name"},
		"createdAt": {Column: "created_at", Kind: query.KindTime},
		"updatedAt": {Column: "updated_at", Kind: query.KindTime},
	},
}
