package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"go.uber.org/zap"
)

const (
	dayLayout   = "2006-01-02"
	chartDays   = 7
	recentCount = 10
	topCount    = 5
)

type DashboardParams struct {
	TZOffset string `form:"tzOffset"`
	Today    string `form:"today"`
	Debug    string `form:"debug"`
}

type DayPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type DashboardDebug struct {
	TZOffset    string           `json:"tzOffset"`
	ClientToday string           `json:"clientToday"`
	Days        []string         `json:"days"`
	InMap       map[string]int64 `json:"inMap"`
	OutMap      map[string]int64 `json:"outMap"`
}

type Dashboard struct {
	Total          int64               `json:"total"`
	Today          int64               `json:"today"`
	ThisWeek       int64               `json:"thisWeek"`
	Recent         []models.Car        `json:"recent"`
	TopReg         []repository.Bucket `json:"topReg"`
	TopPersons     []repository.Bucket `json:"topPersons"`
	DailyCounts    []DayPoint          `json:"dailyCounts"`
	DailyCountsIn  []DayPoint          `json:"dailyCountsIn"`
	DailyCountsOut []DayPoint          `json:"dailyCountsOut"`
	Debug          *DashboardDebug     `json:"debug,omitempty"`
}

type DashboardService struct {
	cars repository.CarRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewDashboardService(cars repository.CarRepository, log *zap.Logger, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{cars: cars, log: log, now: now}
}

// ParseTZOffset reads a "+05:30", "+0530" or "+05" style UTC offset. An
// empty string is UTC.
// A leading space stands for '+', which is what an unescaped plus in a query
// string decodes to.
func ParseTZOffset(s string) (string, *time.Location, error) {
	if s == "" || s == "Z" {
		return "+00:00", time.UTC, nil
	}
	if s[0] == ' ' {
		s = "+" + strings.TrimLeft(s, " ")
	}
	s = strings.Replace(s, ":", "", 1)
	if len(s) == 3 {
		s += "00"
	}
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return "", nil, fmt.Errorf("bad offset %q", s)
	}
	h, errH := strconv.Atoi(s[1:3])
	m, errM := strconv.Atoi(s[3:5])
	if errH != nil || errM != nil || h > 14 || m > 59 {
		return "", nil, fmt.Errorf("bad offset %q", s)
	}
	secs := h*3600 + m*60
	if s[0] == '-' {
		secs = -secs
	}
	canonical := fmt.Sprintf("%c%02d:%02d", s[0], h, m)
	return canonical, time.FixedZone(canonical, secs), nil
}

// chartWindow returns the seven local days ending today and the Sunday
// that starts today's week.
func chartWindow(today time.Time) (days []string, weekStart string) {
	days = make([]string, 0, chartDays)
	for i := chartDays - 1; i >= 0; i-- {
		days = append(days, today.AddDate(0, 0, -i).Format(dayLayout))
	}
	weekStart = today.AddDate(0, 0, -int(today.Weekday())).Format(dayLayout)
	return days, weekStart
}

func (s *DashboardService) Stats(ctx context.Context, caller *models.User, p DashboardParams) (*Dashboard, error) {
	offset, zone, err := ParseTZOffset(p.TZOffset)
	if err != nil {
		return nil, validation("Invalid tzOffset")
	}
	var today time.Time
	if p.Today == "" {
		today, _ = time.Parse(dayLayout, s.now().In(zone).Format(dayLayout))
	} else if today, err = time.Parse(dayLayout, p.Today); err != nil {
		return nil, validation("Invalid today")
	}
	todayStr := today.Format(dayLayout)
	days, weekStart := chartWindow(today)

	out := &Dashboard{
		Recent:         []models.Car{},
		TopReg:         []repository.Bucket{},
		TopPersons:     []repository.Bucket{},
		DailyCounts:    make([]DayPoint, len(days)),
		DailyCountsIn:  make([]DayPoint, len(days)),
		DailyCountsOut: make([]DayPoint, len(days)),
	}
	inMap := make(map[string]int64, len(days))
	outMap := make(map[string]int64, len(days))

	ref, ok := visibleReferral(caller)
	if ok {
		f := repository.CarFilter{ReferralID: ref}
		if out.Total, err = s.cars.Count(ctx, f); err != nil {
			return nil, internal("Server error", err)
		}
		if out.Recent, err = s.cars.Recent(ctx, f, recentCount); err != nil {
			return nil, internal("Server error", err)
		}
		if out.TopReg, err = s.cars.TopBy(ctx, f, "regNo", topCount); err != nil {
			return nil, internal("Server error", err)
		}
		if out.TopPersons, err = s.cars.TopBy(ctx, f, "personName", topCount); err != nil {
			return nil, internal("Server error", err)
		}
		counts, err := s.cars.CountByDay(ctx, f, repository.DayRange{
			Offset: offset,
			Zone:   zone,
			From:   days[0],
			To:     todayStr,
		})
		if err != nil {
			return nil, internal("Server error", err)
		}
		for _, c := range counts {
			if c.Date == todayStr {
				out.Today += c.Count
			}
			if c.Date >= weekStart && c.Date <= todayStr {
				out.ThisWeek += c.Count
			}
			switch c.Status {
			case models.StatusIn:
				inMap[c.Date] += c.Count
			case models.StatusOut:
				outMap[c.Date] += c.Count
			}
		}
	}

	for i, d := range days {
		out.DailyCountsIn[i] = DayPoint{Date: d, Count: inMap[d]}
		out.DailyCountsOut[i] = DayPoint{Date: d, Count: outMap[d]}
		out.DailyCounts[i] = DayPoint{Date: d, Count: inMap[d] + outMap[d]}
	}

	if p.Debug != "" {
		dbg := &DashboardDebug{
			TZOffset:    offset,
			ClientToday: todayStr,
			Days:        days,
			InMap:       make(map[string]int64, len(days)),
			OutMap:      make(map[string]int64, len(days)),
		}
		for _, d := range days {
			dbg.InMap[d] = inMap[d]
			dbg.OutMap[d] = outMap[d]
		}
		out.Debug = dbg
	}
	return out, nil
}
