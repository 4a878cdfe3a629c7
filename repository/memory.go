package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserRepo keeps users in process memory. It enforces the same unique
// email rule as the Mongo index.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[primitive.ObjectID]models.User)}
}

func (r *MemoryUserRepo) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range r.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, primitive.NilObjectID) {
		return ErrDuplicateEmail
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) Promote(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.IsPending() {
		return nil, ErrNotFound
	}
	u.Status = models.StatusVerified
	u.Verified = true
	u.OTP = ""
	u.OTPExpires = time.Time{}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return &u, nil
}

func (r *MemoryUserRepo) DeletePending(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.IsPending() {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepo) ListVerified(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := []models.User{}
	for _, u := range r.users {
		if u.Status == models.StatusVerified {
			users = append(users, u)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (r *MemoryUserRepo) Update(_ context.Context, id primitive.ObjectID, p UserPatch) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Email != nil && r.emailTaken(*p.Email, id) {
		return nil, ErrDuplicateEmail
	}
	assign := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	assign(&u.FirstName, p.FirstName)
	assign(&u.LastName, p.LastName)
	assign(&u.Name, p.Name)
	assign(&u.Email, p.Email)
	assign(&u.Phone, p.Phone)
	assign(&u.EmployeeID, p.EmployeeID)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return &u, nil
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, id primitive.ObjectID, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Password != oldHash {
		return ErrNotFound
	}
	u.Password = newHash
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// MemoryCarRepo keeps cars in process memory with the same filter
// semantics as the Mongo repository.
type MemoryCarRepo struct {
	mu   sync.RWMutex
	cars map[primitive.ObjectID]models.Car
}

func NewMemoryCarRepo() *MemoryCarRepo {
	return &MemoryCarRepo{cars: make(map[primitive.ObjectID]models.Car)}
}

func cloneCar(c models.Car) models.Car {
	c.Photos = append([]string{}, c.Photos...)
	return c
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (f CarFilter) matches(c *models.Car) bool {
	if f.ReferralID != "" && c.ReferralID != f.ReferralID {
		return false
	}
	if f.Search != "" &&
		!containsFold(c.RegNo, f.Search) &&
		!containsFold(c.PersonName, f.Search) &&
		!containsFold(c.Make, f.Search) &&
		!containsFold(c.Model, f.Search) &&
		!containsFold(c.ReferralID, f.Search) {
		return false
	}
	if f.RegNo != "" && !containsFold(c.RegNo, f.RegNo) {
		return false
	}
	if f.PersonName != "" && !containsFold(c.PersonName, f.PersonName) {
		return false
	}
	if f.Make != "" && !containsFold(c.Make, f.Make) {
		return false
	}
	if f.Model != "" && !containsFold(c.Model, f.Model) {
		return false
	}
	if f.Status != "" && c.InOutStatus != f.Status {
		return false
	}
	if f.From != nil && c.InOutDateTime.Before(*f.From) {
		return false
	}
	if f.To != nil && c.InOutDateTime.After(*f.To) {
		return false
	}
	return true
}

func (r *MemoryCarRepo) filter(f CarFilter) []models.Car {
	out := []models.Car{}
	for _, c := range r.cars {
		if f.matches(&c) {
			out = append(out, cloneCar(c))
		}
	}
	return out
}

func (r *MemoryCarRepo) Create(_ context.Context, c *models.Car) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Photos == nil {
		c.Photos = []string{}
	}
	r.cars[c.ID] = cloneCar(*c)
	return nil
}

func (r *MemoryCarRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cars[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneCar(c)
	return &c, nil
}

func (r *MemoryCarRepo) Replace(_ context.Context, c *models.Car) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cars[c.ID]; !ok {
		return ErrNotFound
	}
	r.cars[c.ID] = cloneCar(*c)
	return nil
}

func (r *MemoryCarRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cars[id]; !ok {
		return ErrNotFound
	}
	delete(r.cars, id)
	return nil
}

// compareCars orders a and b by the JSON field name.
func compareCars(a, b *models.Car, field string) int {
	cmpTime := func(x, y time.Time) int { return x.Compare(y) }
	cmpStr := func(x, y string) int { return strings.Compare(x, y) }
	cmpF := func(x, y *float64) int {
		xv, yv := 0.0, 0.0
		if x != nil {
			xv = *x
		}
		if y != nil {
			yv = *y
		}
		switch {
		case xv < yv:
			return -1
		case xv > yv:
			return 1
		}
		return 0
	}
	switch field {
	case "updatedAt":
		return cmpTime(a.UpdatedAt, b.UpdatedAt)
	case "inOutDateTime":
		return cmpTime(a.InOutDateTime, b.InOutDateTime)
	case "inOutStatus":
		return cmpStr(a.InOutStatus, b.InOutStatus)
	case "regNo":
		return cmpStr(a.RegNo, b.RegNo)
	case "make":
		return cmpStr(a.Make, b.Make)
	case "model":
		return cmpStr(a.Model, b.Model)
	case "variant":
		return cmpStr(a.Variant, b.Variant)
	case "colour":
		return cmpStr(a.Colour, b.Colour)
	case "personName":
		return cmpStr(a.PersonName, b.PersonName)
	case "referralId":
		return cmpStr(a.ReferralID, b.ReferralID)
	case "year":
		ay, by := 0, 0
		if a.Year != nil {
			ay = *a.Year
		}
		if b.Year != nil {
			by = *b.Year
		}
		return ay - by
	case "kmp":
		return cmpF(a.Kmp, b.Kmp)
	case "price":
		return cmpF(a.Price, b.Price)
	default:
		return cmpTime(a.CreatedAt, b.CreatedAt)
	}
}

func sortCars(cars []models.Car, field string, desc bool) {
	sort.SliceStable(cars, func(i, j int) bool {
		c := compareCars(&cars[i], &cars[j], field)
		if c == 0 {
			c = strings.Compare(cars[i].ID.Hex(), cars[j].ID.Hex())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func (r *MemoryCarRepo) List(_ context.Context, q CarQuery) ([]models.Car, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cars := r.filter(q.CarFilter)
	sortCars(cars, q.SortBy, q.SortDesc)

	total := int64(len(cars))
	start := min(q.Skip(), total)
	end := min(start+max(q.Limit, 0), total)
	return cars[start:end], total, nil
}

func (r *MemoryCarRepo) All(_ context.Context) ([]models.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cars := r.filter(CarFilter{})
	sortCars(cars, "createdAt", true)
	return cars, nil
}

func (r *MemoryCarRepo) Count(_ context.Context, f CarFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.filter(f))), nil
}

func (r *MemoryCarRepo) Recent(_ context.Context, f CarFilter, n int64) ([]models.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cars := r.filter(f)
	sortCars(cars, "inOutDateTime", true)
	if int64(len(cars)) > n {
		cars = cars[:n]
	}
	return cars, nil
}

func (r *MemoryCarRepo) TopBy(_ context.Context, f CarFilter, field string, n int64) ([]Bucket, error) {
	var key func(c *models.Car) string
	switch field {
	case "regNo":
		key = func(c *models.Car) string { return c.RegNo }
	case "personName":
		key = func(c *models.Car) string { return c.PersonName }
	default:
		return nil, fmt.Errorf("cannot group cars by %q", field)
	}

	r.mu.RLock()
	counts := map[string]int64{}
	for _, c := range r.filter(f) {
		counts[key(&c)]++
	}
	r.mu.RUnlock()

	buckets := make([]Bucket, 0, len(counts))
	for id, cnt := range counts {
		buckets = append(buckets, Bucket{ID: id, Count: cnt})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].ID < buckets[j].ID
	})
	if int64(len(buckets)) > n {
		buckets = buckets[:n]
	}
	return buckets, nil
}

func (r *MemoryCarRepo) CountByDay(_ context.Context, f CarFilter, dr DayRange) ([]DayCount, error) {
	type key struct{ date, status string }
	counts := map[key]int64{}

	r.mu.RLock()
	for _, c := range r.filter(f) {
		d := c.InOutDateTime.In(dr.Zone).Format("2006-01-02")
		if d < dr.From || d > dr.To {
			continue
		}
		counts[key{d, c.InOutStatus}]++
	}
	r.mu.RUnlock()

	out := make([]DayCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, DayCount{Date: k.date, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

var (
	_ UserRepository = (*MemoryUserRepo)(nil)
	_ CarRepository  = (*MemoryCarRepo)(nil)
)
