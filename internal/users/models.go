package users

import "time"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender"`
	Mobile    string    `json:"mobile"`
	Address   string    `json:"address"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser carries the validated signup payload. The password arrives in
// plain text and is hashed before it ever reaches the database.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Age      int    `json:"age" validate:"required,gt=0"`
	Gender   string `json:"gender" validate:"required"`
	Mobile   string `json:"mobile" validate:"required"`
	Address  string `json:"address" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}
