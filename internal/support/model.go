// Package support takes in help and license-renewal requests and relays
// them to the support inbox.
package support

import "time"

// Request tipos.
const (
	TipoConsulta   = "consulta"
	TipoRenovacion = "renovacion"
	TipoProblema   = "problema"
)

// Request is one support form submission.
type Request struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Nombre    string    `json:"nombre"`
	Correo    string    `json:"correo"`
	Tipo      string    `json:"tipo"`
	Asunto    string    `json:"asunto"`
	Mensaje   string    `json:"mensaje"`
	CreatedAt time.Time `json:"created_at"`
}
