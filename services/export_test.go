package services

import (
	"context"
	"testing"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExportCars(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserRepo()
	cars := repository.NewMemoryCarRepo()
	creator := seedUser(t, users, "a@x.com", models.StatusVerified)

	year := 2020
	price := 450000.0
	at := time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC)
	require.NoError(t, cars.Create(ctx, &models.Car{
		RegNo: "KA01", Make: "Maruti", Year: &year, Price: &price, ReferralID: "E01",
		InOutStatus: models.StatusIn, InOutDateTime: at, CreatedBy: creator.ID, CreatedAt: at,
	}))

	clock := newClock()
	out, err := NewExportService(cars, users, zap.NewNop(), clock.Now).Cars(ctx)
	require.NoError(t, err)
	assert.Equal(t, "car_inventory_2025-11-20.xlsx", out.Filename)

	f, err := excelize.OpenReader(out.Data)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Car Inventory")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Registration Number", rows[0][0])
	assert.Equal(t, "Updated At", rows[0][14])
	assert.Equal(t, "KA01", rows[1][0])
	assert.Equal(t, "2020", rows[1][4])
	assert.Equal(t, "A B", rows[1][12])
	assert.Equal(t, "2025-11-20 10:30:00", rows[1][11])
}
