package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/model"
)

// Migrate creates or updates the monthly report table. The model's tags
// carry the unique (trip_type, month) index and the secondary month index;
// metric columns are nullable because they are populated incrementally.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(&model.MonthlyReport{}); err != nil {
		return fmt.Errorf("migrate monthly reports: %w", err)
	}
	return nil
}
