package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserPatch carries the user fields an update may change. Nil fields are
// left untouched.
type UserPatch struct {
	FirstName  *string
	LastName   *string
	Name       *string
	Email      *string
	Phone      *string
	EmployeeID *string
}

// UserRepository stores pending registrants and verified users in one
// collection keyed by a unique email.
type UserRepository interface {
	// Create inserts u and assigns its ID. It returns ErrDuplicateEmail when
	// another record already holds the email.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Promote turns a pending record into a verified user and clears its
	// code. It returns ErrNotFound unless id names a pending record.
	Promote(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// DeletePending removes id only while it is still pending.
	DeletePending(ctx context.Context, id primitive.ObjectID) error
	// ListVerified returns verified users, newest first.
	ListVerified(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, p UserPatch) (*models.User, error)
	// UpdatePassword swaps the password hash only while it still equals
	// oldHash, and reports ErrNotFound otherwise.
	UpdatePassword(ctx context.Context, id primitive.ObjectID, oldHash, newHash string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CarFilter narrows a car query. Zero values do not filter.
type CarFilter struct {
	ReferralID string // exact match, used for visibility scoping
	Search     string // literal, case-insensitive, across several fields
	RegNo      string
	PersonName string
	Make       string
	Model      string
	Status     string
	From       *time.Time // inclusive bounds on InOutDateTime
	To         *time.Time
}

// CarQuery is a filtered, sorted page of cars.
type CarQuery struct {
	CarFilter
	Page     int64
	Limit    int64
	SortBy   string // one of SortFields
	SortDesc bool
}

// Skip is the number of records before the requested page. It is never
// negative, even for pages past the end of the int64 range.
func (q CarQuery) Skip() int64 {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt64/q.Limit {
		return math.MaxInt64
	}
	return (q.Page - 1) * q.Limit
}

// SortFields maps the sortable JSON field names to their stored names.
var SortFields = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"inOutDateTime": "in_out_date_time",
	"inOutStatus":   "in_out_status",
	"regNo":         "reg_no",
	"make":          "make",
	"model":         "model",
	"variant":       "variant",
	"year":          "year",
	"colour":        "colour",
	"kmp":           "kmp",
	"personName":    "person_name",
	"price":         "price",
	"referralId":    "referral_id",
}

// Bucket is one group of a top-N count.
type Bucket struct {
	ID    string `bson:"_id" json:"_id"`
	Count int64  `bson:"count" json:"count"`
}

// DayCount is the number of cars with a given status whose InOutDateTime
// falls on Date (YYYY-MM-DD) in the requested zone.
type DayCount struct {
	Date   string `bson:"date"`
	Status string `bson:"status"`
	Count  int64  `bson:"count"`
}

// DayRange selects the local calendar days [From, To] in a fixed offset
// zone. Offset is the "+05:30" form of Zone.
type DayRange struct {
	Offset string
	Zone   *time.Location
	From   string
	To     string
}

type CarRepository interface {
	Create(ctx context.Context, c *models.Car) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Car, error)
	// Replace overwrites the stored record with c.
	Replace(ctx context.Context, c *models.Car) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, q CarQuery) ([]models.Car, int64, error)
	// All returns every car, newest first.
	All(ctx context.Context) ([]models.Car, error)
	Count(ctx context.Context, f CarFilter) (int64, error)
	// Recent returns the n cars with the latest InOutDateTime.
	Recent(ctx context.Context, f CarFilter, n int64) ([]models.Car, error)
	// TopBy counts cars grouped by field ("regNo" or "personName") and
	// returns the n largest groups.
	TopBy(ctx context.Context, f CarFilter, field string, n int64) ([]Bucket, error)
	CountByDay(ctx context.Context, f CarFilter, r DayRange) ([]DayCount, error)
}
