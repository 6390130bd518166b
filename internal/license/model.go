package license

import "time"

// Possible values of Status.Estado.
const (
	EstadoOK        = "ok"
	EstadoExpiring  = "expiring"
	EstadoExpired   = "expired"
	EstadoNotFound  = "not_found"
	expiringFromDay = 5
	trialDays       = 7
)

// License is a time-bounded access grant for one user. Estado marks grants
// an admin revoked; expiry is computed from FechaFin, not stored.
type License struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	FechaInicio time.Time `json:"fecha_inicio"`
	FechaFin    time.Time `json:"fecha_fin"`
	Estado      bool      `json:"estado"`
	CreatedAt   time.Time `json:"created_at"`
}

// Status is the computed view the chat assistant and the gate middleware
// consume. Dias counts remaining days inclusive of today: a license whose
// FechaFin is today still has 1 day left.
type Status struct {
	FechaFin time.Time `json:"fecha_fin"`
	Dias     int       `json:"dias_restantes"`
	Estado   string    `json:"estado"`
}
