package services

import (
	"context"
	"errors"
	"strings"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserUpdateInput is an admin edit of another user. Empty fields are kept.
type UserUpdateInput struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	EmployeeID string `json:"employeeId"`
}

type UserService struct {
	users repository.UserRepository
	log   *zap.Logger
}

func NewUserService(users repository.UserRepository, log *zap.Logger) *UserService {
	return &UserService{users: users, log: log}
}

func parseUserID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, notFound("User not found")
	}
	return oid, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListVerified(ctx)
	if err != nil {
		return nil, internal("Server error", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseUserID(id)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.IsPending()) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, internal("Server error", err)
	}
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UserUpdateInput) (*models.User, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var patch repository.UserPatch
	first, last := cur.FirstName, cur.LastName
	if v := strings.TrimSpace(in.FirstName); v != "" {
		first = v
		patch.FirstName = &first
	}
	if v := strings.TrimSpace(in.LastName); v != "" {
		last = v
		patch.LastName = &last
	}
	if patch.FirstName != nil || patch.LastName != nil {
		name := models.FullName(first, last)
		patch.Name = &name
	}
	if v := NormalizeEmail(in.Email); v != "" && v != cur.Email {
		patch.Email = &v
	}
	if v := strings.TrimSpace(in.Phone); v != "" {
		patch.Phone = &v
	}
	if v := strings.TrimSpace(in.EmployeeID); v != "" {
		if len(v) > models.MaxReferralIDLen {
			return nil, validation("Employee ID must be 16 characters or less")
		}
		patch.EmployeeID = &v
	}

	u, err := s.users.Update(ctx, cur.ID, patch)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, validation(MsgEmailTaken)
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFound("User not found")
	case err != nil:
		return nil, internal("Server error", err)
	}
	s.log.Info("user updated", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	oid, err := parseUserID(id)
	if err != nil {
		return err
	}
	err = s.users.Delete(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("User not found")
	}
	if err != nil {
		return internal("Server error", err)
	}
	s.log.Info("user deleted", zap.String("user_id", id))
	return nil
}
