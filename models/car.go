package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Car movement states.
const (
	StatusIn  = "IN"
	StatusOut = "OUT"
)

// MaxPhotos is the most photo references a car record can hold.
const MaxPhotos = 6

// MaxReferralIDLen bounds both car referral ids and user employee ids.
const MaxReferralIDLen = 16

// Car is a single inventory record. ReferralID scopes visibility for
// non-admin users; CreatedBy is the submitting user.
type Car struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	InOutStatus   string             `bson:"in_out_status" json:"inOutStatus"`
	InOutDateTime time.Time          `bson:"in_out_date_time" json:"inOutDateTime"`
	RegNo         string             `bson:"reg_no" json:"regNo"`
	Make          string             `bson:"make,omitempty" json:"make,omitempty"`
	Model         string             `bson:"model,omitempty" json:"model,omitempty"`
	Variant       string             `bson:"variant,omitempty" json:"variant,omitempty"`
	Year          *int               `bson:"year,omitempty" json:"year,omitempty"`
	Colour        string             `bson:"colour,omitempty" json:"colour,omitempty"`
	Kmp           *float64           `bson:"kmp,omitempty" json:"kmp,omitempty"` // odometer reading
	PersonName    string             `bson:"person_name,omitempty" json:"personName,omitempty"`
	CellNo        string             `bson:"cell_no,omitempty" json:"cellNo,omitempty"`
	Price         *float64           `bson:"price,omitempty" json:"price,omitempty"`
	ReferralID    string             `bson:"referral_id" json:"referralId"`
	Photos        []string           `bson:"photos" json:"photos"`
	Video         string             `bson:"video,omitempty" json:"video,omitempty"`
	CreatedBy     primitive.ObjectID `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// IsValidCarStatus reports whether s is one of the known movement states.
func IsValidCarStatus(s string) bool {
	return s == StatusIn || s == StatusOut
}

// Media returns every remote object referenced by the record.
func (c *Car) Media() []string {
	urls := make([]string, 0, len(c.Photos)+1)
	urls = append(urls, c.Photos...)
	if c.Video != "" {
		urls = append(urls, c.Video)
	}
	return urls
}
