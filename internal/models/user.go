package models

import "time"

// User is a registered account.
type User struct {
	ID        int64     `json:"id"         bson:"_id"`
	Username  string    `json:"username"   bson:"username"`
	Password  string    `json:"-"          bson:"password"` // never serialize
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// NewUser is what the store needs to create a user. Password is already hashed.
type NewUser struct {
	Username string
	Password string
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
