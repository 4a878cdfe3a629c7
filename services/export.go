package services

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	exportSheet      = "Car Inventory"
	exportTimeLayout = "2006-01-02 15:04:05"
	XLSXContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type exportColumn struct {
	header string
	width  float64
}

var exportColumns = []exportColumn{
	{"Registration Number", 20},
	{"Make", 15},
	{"Model", 15},
	{"Variant", 15},
	{"Year", 10},
	{"Colour", 10},
	{"KMP", 10},
	{"Person Name", 20},
	{"Cell Number", 15},
	{"Price", 15},
	{"In/Out Status", 15},
	{"In/Out Date Time", 20},
	{"Created By", 20},
	{"Created At", 20},
	{"Updated At", 20},
}

// Export is a rendered spreadsheet ready to be sent.
type Export struct {
	Filename string
	Data     *bytes.Buffer
}

type ExportService struct {
	cars  repository.CarRepository
	users repository.UserRepository
	log   *zap.Logger
	now   func() time.Time
}

func NewExportService(cars repository.CarRepository, users repository.UserRepository, log *zap.Logger, now func() time.Time) *ExportService {
	if now == nil {
		now = time.Now
	}
	return &ExportService{cars: cars, users: users, log: log, now: now}
}

// Cars renders every car record into a single-sheet workbook.
func (s *ExportService) Cars(ctx context.Context) (*Export, error) {
	cars, err := s.cars.All(ctx)
	if err != nil {
		return nil, internal("Export failed", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, internal("Export failed", err)
	}

	header := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col.header
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(exportSheet, name, name, col.width); err != nil {
			return nil, internal("Export failed", err)
		}
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, internal("Export failed", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.ColumnNumberToName(len(exportColumns))
		_ = f.SetCellStyle(exportSheet, "A1", last+"1", bold)
	}

	names := map[primitive.ObjectID]string{}
	creator := func(id primitive.ObjectID) string {
		if id.IsZero() {
			return ""
		}
		if n, ok := names[id]; ok {
			return n
		}
		u, err := s.users.FindByID(ctx, id)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("export: creator lookup failed", zap.String("user_id", id.Hex()), zap.Error(err))
		}
		if u != nil {
			names[id] = u.Name
		} else {
			names[id] = ""
		}
		return names[id]
	}

	for i, c := range cars {
		row := []interface{}{
			c.RegNo, c.Make, c.Model, c.Variant,
			optional(c.Year), c.Colour, optional(c.Kmp),
			c.PersonName, c.CellNo, optional(c.Price),
			c.InOutStatus, formatTime(c.InOutDateTime),
			creator(c.CreatedBy),
			formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, internal("Export failed", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, internal("Export failed", err)
	}
	s.log.Info("cars exported", zap.Int("rows", len(cars)))
	return &Export{
		Filename: "car_inventory_" + s.now().UTC().Format(dayLayout) + ".xlsx",
		Data:     buf,
	}, nil
}

func optional[T int | float64](v *T) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}
