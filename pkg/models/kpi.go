package models

import "time"

// KPIDaily is one row of the kpi_daily table: target and actual values for
// the four line KPIs on a given date and piece of equipment.
type KPIDaily struct {
	Date      string  `json:"date"`
	EqpID     string  `json:"eqp_id"`
	LineID    string  `json:"line_id"`
	OperID    string  `json:"oper_id"`
	OEETarget float64 `json:"oee_t"`
	OEEValue  float64 `json:"oee_v"`
	THPTarget float64 `json:"thp_t"`
	THPValue  float64 `json:"thp_v"`
	TATTarget float64 `json:"tat_t"`
	TATValue  float64 `json:"tat_v"`
	WIPTarget float64 `json:"wip_t"`
	WIPValue  float64 `json:"wip_v"`
	AlarmFlag bool    `json:"alarm_flag"`
}

// EqpStatusEvent is one equipment state transition (RUN, DOWN, IDLE, PM)
// recorded around the alarm window.
type EqpStatusEvent struct {
	EqpID     string    `json:"eqp_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Duration returns how long the equipment stayed in this state.
func (e EqpStatusEvent) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// LotEvent is one lot movement through the equipment.
type LotEvent struct {
	LotID   string    `json:"lot_id"`
	EqpID   string    `json:"eqp_id"`
	Step    string    `json:"step"`
	Qty     int       `json:"qty"`
	MovedAt time.Time `json:"moved_at"`
}
