package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 25
	maxPageLimit     = 100
)

var (
	photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
	videoExts = map[string]bool{".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".flv": true, ".webm": true}
)

// CarFields holds the client-supplied car attributes in their raw string
// form. A nil field was not sent.
type CarFields struct {
	InOutStatus   *string
	InOutDateTime *string
	RegNo         *string
	Make          *string
	Model         *string
	Variant       *string
	Year          *string
	Colour        *string
	Kmp           *string
	PersonName    *string
	CellNo        *string
	Price         *string
	ReferralID    *string
}

// Upload is one file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// ListParams are the raw query parameters of a car listing.
type ListParams struct {
	Search     string `form:"search"`
	RegNo      string `form:"regNo"`
	PersonName string `form:"personName"`
	Make       string `form:"make"`
	Model      string `form:"model"`
	Status     string `form:"status"`
	StartDate  string `form:"startDate"`
	EndDate    string `form:"endDate"`
	Page       string `form:"page"`
	Limit      string `form:"limit"`
	SortBy     string `form:"sortBy"`
	SortDir    string `form:"sortDir"`
}

type CarPage struct {
	Total int64        `json:"total"`
	Page  int64        `json:"page"`
	Limit int64        `json:"limit"`
	Items []models.Car `json:"items"`
}

type CarOptions struct {
	MaxFileBytes int64
	Now          func() time.Time
}

type CarService struct {
	cars         repository.CarRepository
	media        storage.MediaStore
	reaper       *MediaReaper
	log          *zap.Logger
	maxFileBytes int64
	now          func() time.Time
}

func NewCarService(cars repository.CarRepository, media storage.MediaStore, reaper *MediaReaper, log *zap.Logger, opts CarOptions) *CarService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CarService{
		cars:         cars,
		media:        media,
		reaper:       reaper,
		log:          log,
		maxFileBytes: opts.MaxFileBytes,
		now:          opts.Now,
	}
}

// visibleReferral returns the referral id caller is scoped to. ok is false
// when the caller may see nothing.
func visibleReferral(caller *models.User) (ref string, ok bool) {
	if caller.IsAdmin() {
		return "", true
	}
	if caller.EmployeeID == "" {
		return "", false
	}
	return caller.EmployeeID, true
}

func isOwner(caller *models.User, car *models.Car) bool {
	return !car.CreatedBy.IsZero() && car.CreatedBy == caller.ID
}

func (s *CarService) Create(ctx context.Context, caller *models.User, f CarFields, photos []Upload, video *Upload) (*models.Car, error) {
	now := s.now().UTC()
	car := &models.Car{
		InOutStatus:   models.StatusIn,
		InOutDateTime: now,
		Photos:        []string{},
		CreatedBy:     caller.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := applyCarFields(car, f); err != nil {
		return nil, err
	}
	if err := s.checkMedia(photos, video, models.MaxPhotos); err != nil {
		return nil, err
	}

	photoURLs, videoURL, err := s.uploadMedia(ctx, photos, video)
	if err != nil {
		return nil, err
	}
	car.Photos = append(car.Photos, photoURLs...)
	car.Video = videoURL

	if err := s.cars.Create(ctx, car); err != nil {
		s.reaper.Release(car.Media()...)
		return nil, internal("Server error", err)
	}
	s.log.Info("car created", zap.String("car_id", car.ID.Hex()), zap.String("reg_no", car.RegNo))
	return car, nil
}

func (s *CarService) List(ctx context.Context, caller *models.User, p ListParams) (*CarPage, error) {
	q, err := buildQuery(p)
	if err != nil {
		return nil, err
	}
	ref, ok := visibleReferral(caller)
	if !ok {
		return &CarPage{Total: 0, Page: 1, Limit: q.Limit, Items: []models.Car{}}, nil
	}
	q.ReferralID = ref

	items, total, err := s.cars.List(ctx, q)
	if err != nil {
		return nil, internal("Server error", err)
	}
	return &CarPage{Total: total, Page: q.Page, Limit: q.Limit, Items: items}, nil
}

func (s *CarService) find(ctx context.Context, id, missing string) (*models.Car, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound(missing)
	}
	car, err := s.cars.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(missing)
	}
	if err != nil {
		return nil, internal("Server error", err)
	}
	return car, nil
}

func (s *CarService) Get(ctx context.Context, caller *models.User, id string) (*models.Car, error) {
	car, err := s.find(ctx, id, "Not found")
	if err != nil {
		return nil, err
	}
	if caller.IsAdmin() || isOwner(caller, car) {
		return car, nil
	}
	if ref, ok := visibleReferral(caller); ok && car.ReferralID == ref {
		return car, nil
	}
	return nil, forbidden("Access denied")
}

// Update edits a car. New photos are appended and the list is cut to the
// first six; photos that would not fit are never uploaded.
func (s *CarService) Update(ctx context.Context, caller *models.User, id string, f CarFields, photos []Upload, video *Upload) (*models.Car, error) {
	car, err := s.find(ctx, id, "Not found")
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !isOwner(caller, car) {
		return nil, forbidden("Access denied")
	}

	owner := car.CreatedBy
	if err := applyCarFields(car, f); err != nil {
		return nil, err
	}
	if err := s.checkMedia(photos, video, models.MaxPhotos); err != nil {
		return nil, err
	}
	if free := models.MaxPhotos - len(car.Photos); len(photos) > free {
		photos = photos[:max(free, 0)]
	}

	photoURLs, videoURL, err := s.uploadMedia(ctx, photos, video)
	if err != nil {
		return nil, err
	}
	oldVideo := car.Video
	car.Photos = append(car.Photos, photoURLs...)
	if len(car.Photos) > models.MaxPhotos {
		car.Photos = car.Photos[:models.MaxPhotos]
	}
	if videoURL != "" {
		car.Video = videoURL
	}
	car.CreatedBy = owner
	car.UpdatedAt = s.now().UTC()

	if err := s.cars.Replace(ctx, car); err != nil {
		s.reaper.Release(append(photoURLs, videoURL)...)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Not found")
		}
		return nil, internal("Server error", err)
	}
	if videoURL != "" && oldVideo != "" && oldVideo != videoURL {
		s.reaper.Release(oldVideo)
	}
	s.log.Info("car updated", zap.String("car_id", car.ID.Hex()))
	return car, nil
}

// Delete removes a car record. Its media is released in the background and
// never blocks the deletion.
func (s *CarService) Delete(ctx context.Context, caller *models.User, id string) error {
	car, err := s.find(ctx, id, "Not found")
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && !isOwner(caller, car) {
		return forbidden("Access denied")
	}
	if err := s.cars.Delete(ctx, car.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Not found")
		}
		return internal("Server error", err)
	}
	s.reaper.Release(car.Media()...)
	s.log.Info("car deleted", zap.String("car_id", car.ID.Hex()))
	return nil
}

func (s *CarService) DeletePhoto(ctx context.Context, id, index string) error {
	car, err := s.find(ctx, id, "Car not found")
	if err != nil {
		return err
	}
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= len(car.Photos) {
		return validation("Invalid photo index")
	}
	removed := car.Photos[i]
	car.Photos = append(car.Photos[:i:i], car.Photos[i+1:]...)
	car.UpdatedAt = s.now().UTC()
	if err := s.cars.Replace(ctx, car); err != nil {
		return internal("Server error", err)
	}
	s.reaper.Release(removed)
	return nil
}

func (s *CarService) DeleteVideo(ctx context.Context, id string) error {
	car, err := s.find(ctx, id, "Car not found")
	if err != nil {
		return err
	}
	if car.Video == "" {
		return notFound("No video to delete")
	}
	removed := car.Video
	car.Video = ""
	car.UpdatedAt = s.now().UTC()
	if err := s.cars.Replace(ctx, car); err != nil {
		return internal("Server error", err)
	}
	s.reaper.Release(removed)
	return nil
}

func (s *CarService) checkMedia(photos []Upload, video *Upload, maxPhotos int) error {
	if len(photos) > maxPhotos {
		return validation(fmt.Sprintf("At most %d photos are allowed", maxPhotos))
	}
	for _, p := range photos {
		if !strings.HasPrefix(p.ContentType, "image/") || !photoExts[strings.ToLower(path.Ext(p.Filename))] {
			return validation("Only image files are allowed for photos")
		}
		if s.maxFileBytes > 0 && p.Size > s.maxFileBytes {
			return validation("File too large")
		}
	}
	if video != nil {
		if !strings.HasPrefix(video.ContentType, "video/") || !videoExts[strings.ToLower(path.Ext(video.Filename))] {
			return validation("Only video files are allowed for video")
		}
		if s.maxFileBytes > 0 && video.Size > s.maxFileBytes {
			return validation("File too large")
		}
	}
	return nil
}

// uploadMedia stores photos then the video. On any failure everything
// uploaded so far is released.
func (s *CarService) uploadMedia(ctx context.Context, photos []Upload, video *Upload) ([]string, string, error) {
	urls := make([]string, 0, len(photos))
	fail := func(err error) ([]string, string, error) {
		s.reaper.Release(urls...)
		var se *Error
		if errors.As(err, &se) {
			return nil, "", err
		}
		return nil, "", internal("Media upload failed", err)
	}

	for _, p := range photos {
		u, err := s.uploadPhoto(ctx, p)
		if err != nil {
			return fail(err)
		}
		urls = append(urls, u)
	}

	var videoURL string
	if video != nil {
		rc, err := video.Open()
		if err != nil {
			return fail(err)
		}
		videoURL, err = s.media.Upload(ctx, storage.Object{
			Folder:      storage.FolderVideos,
			Filename:    video.Filename,
			ContentType: video.ContentType,
			Body:        rc,
		})
		rc.Close()
		if err != nil {
			return fail(err)
		}
	}
	return urls, videoURL, nil
}

func (s *CarService) uploadPhoto(ctx context.Context, p Upload) (string, error) {
	rc, err := p.Open()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", err
	}
	data, err = storage.DownscalePhoto(data, p.Filename)
	if err != nil {
		return "", validation("Invalid image file: " + path.Base(p.Filename))
	}
	return s.media.Upload(ctx, storage.Object{
		Folder:      storage.FolderPhotos,
		Filename:    p.Filename,
		ContentType: p.ContentType,
		Body:        bytes.NewReader(data),
	})
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func applyCarFields(car *models.Car, f CarFields) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&car.RegNo, f.RegNo)
	set(&car.ReferralID, f.ReferralID)
	set(&car.Make, f.Make)
	set(&car.Model, f.Model)
	set(&car.Variant, f.Variant)
	set(&car.Colour, f.Colour)
	set(&car.PersonName, f.PersonName)
	set(&car.CellNo, f.CellNo)

	if car.RegNo == "" {
		return validation("regNo is required")
	}
	if car.ReferralID == "" {
		return validation("referralId is required")
	}
	if len(car.ReferralID) > models.MaxReferralIDLen {
		return validation("Referral ID must be 16 characters or less")
	}

	if f.InOutStatus != nil {
		st := strings.ToUpper(strings.TrimSpace(*f.InOutStatus))
		switch {
		case st == "":
		case models.IsValidCarStatus(st):
			car.InOutStatus = st
		default:
			return validation("inOutStatus must be IN or OUT")
		}
	}
	if f.InOutDateTime != nil && strings.TrimSpace(*f.InOutDateTime) != "" {
		t, ok := parseDateTime(strings.TrimSpace(*f.InOutDateTime))
		if !ok {
			return validation("Invalid inOutDateTime")
		}
		car.InOutDateTime = t
	}
	if f.Year != nil {
		v, err := optionalInt(*f.Year)
		if err != nil {
			return validation("year must be a number")
		}
		car.Year = v
	}
	if f.Kmp != nil {
		v, err := optionalFloat(*f.Kmp)
		if err != nil {
			return validation("kmp must be a number")
		}
		car.Kmp = v
	}
	if f.Price != nil {
		v, err := optionalFloat(*f.Price)
		if err != nil {
			return validation("price must be a number")
		}
		car.Price = v
	}
	return nil
}

func optionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func buildQuery(p ListParams) (repository.CarQuery, error) {
	q := repository.CarQuery{
		CarFilter: repository.CarFilter{
			Search:     strings.TrimSpace(p.Search),
			RegNo:      strings.TrimSpace(p.RegNo),
			PersonName: strings.TrimSpace(p.PersonName),
			Make:       strings.TrimSpace(p.Make),
			Model:      strings.TrimSpace(p.Model),
		},
		Page:     1,
		Limit:    defaultPageLimit,
		SortBy:   "createdAt",
		SortDesc: !strings.EqualFold(p.SortDir, "asc"),
	}
	if st := strings.ToUpper(strings.TrimSpace(p.Status)); st != "" {
		if !models.IsValidCarStatus(st) {
			return q, validation("status must be IN or OUT")
		}
		q.Status = st
	}
	if n, err := strconv.ParseInt(p.Limit, 10, 64); err == nil {
		q.Limit = min(max(n, 1), maxPageLimit)
	}
	if n, err := strconv.ParseInt(p.Page, 10, 64); err == nil {
		// keep (page-1)*limit inside int64
		q.Page = min(max(n, 1), math.MaxInt64/q.Limit)
	}
	if _, ok := repository.SortFields[p.SortBy]; ok {
		q.SortBy = p.SortBy
	}
	if p.StartDate != "" {
		t, ok := parseDateTime(p.StartDate)
		if !ok {
			return q, validation("Invalid startDate")
		}
		q.From = &t
	}
	if p.EndDate != "" {
		t, ok := parseDateTime(p.EndDate)
		if !ok {
			return q, validation("Invalid endDate")
		}
		// a bare date covers the whole day
		if len(p.EndDate) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		q.To = &t
	}
	return q, nil
}
