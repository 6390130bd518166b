package license

import (
	"context"
	"fmt"
	"time"

	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Service computes license state and issues new grants.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, now: time.Now, logger: logger}
}

// StatusFor returns the computed status of the user's newest active license,
// or nil when the user holds none.
func (s *Service) StatusFor(ctx context.Context, userID string) (*Status, error) {
	lic, err := s.repo.LatestActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("license lookup: %w", err)
	}
	if lic == nil {
		return nil, nil
	}

	dias := DaysRemaining(lic.FechaFin, s.now())
	estado := EstadoExpired
	switch {
	case dias > expiringFromDay:
		estado = EstadoOK
	case dias >= 1:
		estado = EstadoExpiring
	}
	return &Status{FechaFin: lic.FechaFin, Dias: dias, Estado: estado}, nil
}

// IssueTrial creates the standard trial grant for a newly registered user.
func (s *Service) IssueTrial(ctx context.Context, userID string) (*License, error) {
	start := s.now()
	lic := &License{
		UserID:      userID,
		FechaInicio: start,
		FechaFin:    start.AddDate(0, 0, trialDays-1),
		Estado:      true,
	}
	if err := s.repo.Create(ctx, lic); err != nil {
		return nil, err
	}
	s.logger.Info("trial license issued", "user_id", userID, "fecha_fin", lic.FechaFin)
	return lic, nil
}

// Renew extends access by the given number of months, replacing any active
// grant.
func (s *Service) Renew(ctx context.Context, userID string, months int) (*License, error) {
	if months <= 0 {
		return nil, fmt.Errorf("license renew: meses inválidos (%d)", months)
	}
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		return nil, err
	}
	start := s.now()
	lic := &License{
		UserID:      userID,
		FechaInicio: start,
		FechaFin:    start.AddDate(0, months, 0),
		Estado:      true,
	}
	if err := s.repo.Create(ctx, lic); err != nil {
		return nil, err
	}
	s.logger.Info("license renewed", "user_id", userID, "meses", months, "fecha_fin", lic.FechaFin)
	return lic, nil
}

// DaysRemaining counts calendar days from today through fechaFin inclusive:
// a license expiring today has 1 day left, yesterday's has 0.
func DaysRemaining(fechaFin, now time.Time) int {
	end := truncateToDay(fechaFin)
	today := truncateToDay(now)
	return int(end.Sub(today).Hours()/24) + 1
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
