package store

import (
	"context"
	"errors"

	"github.com/minwoopark/alarmsense/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// GetLatestAlarm returns the newest kpi_daily row with the alarm flag set.
	GetLatestAlarm(ctx context.Context) (*models.KPIDaily, error)
	// GetKPIDaily returns the row for one date and piece of equipment.
	GetKPIDaily(ctx context.Context, date, eqpID string) (*models.KPIDaily, error)

	GetEqpStatusHistory(ctx context.Context, eqpID, date string) ([]models.EqpStatusEvent, error)
	GetLotHistory(ctx context.Context, eqpID, date string) ([]models.LotEvent, error)
}
