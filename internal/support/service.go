package support

import (
	"context"
	"fmt"
	"strings"

	"github.com/sisarm/sisarm-search/internal/notify"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Service stores a request and relays it to the support inbox. The relay is
// best effort: a mail failure never loses the stored request.
type Service struct {
	repo   Repository
	email  notify.EmailSender
	inbox  string
	logger *logging.Logger
}

func NewService(repo Repository, email notify.EmailSender, inbox string, logger *logging.Logger) *Service {
	if inbox == "" {
		inbox = "soporte@sisarm.com"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, email: email, inbox: inbox, logger: logger}
}

// Submit validates, stores and relays one support request.
func (s *Service) Submit(ctx context.Context, req *Request) error {
	req.Nombre = strings.TrimSpace(req.Nombre)
	req.Correo = strings.TrimSpace(req.Correo)
	req.Mensaje = strings.TrimSpace(req.Mensaje)
	if req.Correo == "" || req.Mensaje == "" {
		return fmt.Errorf("support: correo y mensaje son obligatorios")
	}
	switch req.Tipo {
	case TipoConsulta, TipoRenovacion, TipoProblema:
	default:
		req.Tipo = TipoConsulta
	}
	if req.Asunto == "" {
		req.Asunto = "Solicitud de soporte"
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return err
	}

	if s.email != nil {
		msg := notify.EmailMessage{
			To:      s.inbox,
			ToName:  "Soporte SISARM",
			Subject: fmt.Sprintf("[%s] %s", req.Tipo, req.Asunto),
			Body: fmt.Sprintf("Solicitud #%d\nDe: %s <%s>\nUsuario: %s\n\n%s",
				req.ID, req.Nombre, req.Correo, req.UserID, req.Mensaje),
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Warn("support relay email failed", "error", err, "request_id", req.ID)
		}
	}
	return nil
}

// List returns the newest requests for the admin screen.
func (s *Service) List(ctx context.Context, limit int) ([]Request, error) {
	return s.repo.List(ctx, limit)
}
