package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const kpiDailyColumns = `to_char(date, 'YYYY-MM-DD'), eqp_id, line_id, oper_id,
	oee_t, oee_v, thp_t, thp_v, tat_t, tat_v, wip_t, wip_v, alarm_flag`

func scanKPIDaily(row pgx.Row) (*models.KPIDaily, error) {
	var k models.KPIDaily
	err := row.Scan(&k.Date, &k.EqpID, &k.LineID, &k.OperID,
		&k.OEETarget, &k.OEEValue, &k.THPTarget, &k.THPValue,
		&k.TATTarget, &k.TATValue, &k.WIPTarget, &k.WIPValue, &k.AlarmFlag)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PostgresStore) GetLatestAlarm(ctx context.Context) (*models.KPIDaily, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+kpiDailyColumns+`
		 FROM kpi_daily
		 WHERE alarm_flag = true
		 ORDER BY date DESC, eqp_id
		 LIMIT 1`)

	k, err := scanKPIDaily(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest alarm: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) GetKPIDaily(ctx context.Context, date, eqpID string) (*models.KPIDaily, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+kpiDailyColumns+`
		 FROM kpi_daily
		 WHERE date = $1::date AND eqp_id = $2
		 LIMIT 1`, date, eqpID)

	k, err := scanKPIDaily(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get kpi daily: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) GetEqpStatusHistory(ctx context.Context, eqpID, date string) ([]models.EqpStatusEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT eqp_id, status, reason, started_at, ended_at
		 FROM eqp_status
		 WHERE eqp_id = $1 AND started_at::date = $2::date
		 ORDER BY started_at`, eqpID, date)
	if err != nil {
		return nil, fmt.Errorf("get eqp status history: %w", err)
	}
	defer rows.Close()

	var events []models.EqpStatusEvent
	for rows.Next() {
		var e models.EqpStatusEvent
		if err := rows.Scan(&e.EqpID, &e.Status, &e.Reason, &e.StartedAt, &e.EndedAt); err != nil {
			return nil, fmt.Errorf("scan eqp status: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eqp status: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) GetLotHistory(ctx context.Context, eqpID, date string) ([]models.LotEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT lot_id, eqp_id, step, qty, moved_at
		 FROM lot_event
		 WHERE eqp_id = $1 AND moved_at::date = $2::date
		 ORDER BY moved_at`, eqpID, date)
	if err != nil {
		return nil, fmt.Errorf("get lot history: %w", err)
	}
	defer rows.Close()

	var events []models.LotEvent
	for rows.Next() {
		var e models.LotEvent
		if err := rows.Scan(&e.LotID, &e.EqpID, &e.Step, &e.Qty, &e.MovedAt); err != nil {
			return nil, fmt.Errorf("scan lot event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lot events: %w", err)
	}
	return events, nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
