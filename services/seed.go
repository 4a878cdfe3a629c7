package services

import (
	"context"
	"errors"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/utils"
)

// AdminSeed describes the administrator created out of band.
type AdminSeed struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Password   string
	EmployeeID string
	BcryptCost int
}

// SeedAdmin creates a verified admin unless a verified account with the
// email already exists. A pending registrant holding the email is replaced.
// created reports whether a record was written.
func SeedAdmin(ctx context.Context, users repository.UserRepository, seed AdminSeed, now time.Time) (created bool, err error) {
	email := NormalizeEmail(seed.Email)
	if email == "" || seed.Password == "" {
		return false, errors.New("admin email and password are required")
	}
	if len(seed.Password) > MaxPasswordBytes {
		return false, errors.New("admin password must be 72 bytes or less")
	}
	if len(seed.EmployeeID) > models.MaxReferralIDLen {
		return false, errors.New("employee id must be 16 characters or less")
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return false, err
	case !existing.IsPending():
		return false, nil
	default:
		// an unverified registrant cannot hold the admin address
		if err := users.DeletePending(ctx, existing.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
	}

	hash, err := utils.HashPassword(seed.Password, seed.BcryptCost)
	if err != nil {
		return false, err
	}
	admin := &models.User{
		FirstName:  seed.FirstName,
		LastName:   seed.LastName,
		Name:       models.FullName(seed.FirstName, seed.LastName),
		Email:      email,
		Phone:      seed.Phone,
		Password:   hash,
		EmployeeID: seed.EmployeeID,
		Role:       models.RoleAdmin,
		Status:     models.StatusVerified,
		Verified:   true,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
