package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold. The role is only ever read from the store, never
// taken from the client.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Lifecycle states of a user record. A pending record is a registrant that
// has not confirmed its email with the one-time code yet.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
)

// User is both the unverified registrant and the verified account; Status
// tells them apart. Email is unique across both states.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName  string             `bson:"first_name" json:"firstName"`
	LastName   string             `bson:"last_name" json:"lastName"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone" json:"phone"`
	Password   string             `bson:"password_hash" json:"-"` // hashed password; omit from JSON output
	EmployeeID string             `bson:"employee_id" json:"employeeId"`
	Role       string             `bson:"role" json:"role"`
	Status     string             `bson:"status" json:"-"`
	Verified   bool               `bson:"is_verified" json:"isVerified"`
	OTP        string             `bson:"otp,omitempty" json:"-"`
	OTPExpires time.Time          `bson:"otp_expires,omitempty" json:"-"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// IsPending reports whether the record still waits for OTP verification.
func (u *User) IsPending() bool { return u.Status == StatusPending }

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// FullName joins the name parts the way the name field is stored.
func FullName(first, last string) string {
	return first + " " + last
}

// UserSummary is the short user view returned by auth endpoints.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Summary builds the short view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
