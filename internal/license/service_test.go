package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	latest  *License
	err     error
	created []*License
}

func (f *fakeRepo) LatestActive(context.Context, string) (*License, error) {
	return f.latest, f.err
}

func (f *fakeRepo) Create(_ context.Context, l *License) error {
	f.created = append(f.created, l)
	return nil
}

func (f *fakeRepo) Deactivate(context.Context, string) error { return nil }

func fixedService(repo Repository, now time.Time) *Service {
	s := NewService(repo, nil)
	s.now = func() time.Time { return now }
	return s
}

func TestDaysRemainingInclusive(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name     string
		fechaFin time.Time
		want     int
	}{
		{"expires today", now, 1},
		{"expires tomorrow", now.AddDate(0, 0, 1), 2},
		{"expired yesterday", now.AddDate(0, 0, -1), 0},
		{"a week out", now.AddDate(0, 0, 6), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysRemaining(tt.fechaFin, now))
		})
	}
}

func TestStatusForThresholds(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		fechaFin   time.Time
		wantDias   int
		wantEstado string
	}{
		{"plenty left", now.AddDate(0, 0, 30), 31, EstadoOK},
		{"six days left is ok", now.AddDate(0, 0, 5), 6, EstadoOK},
		{"five days left is expiring", now.AddDate(0, 0, 4), 5, EstadoExpiring},
		{"expires today is expiring", now, 1, EstadoExpiring},
		{"expired yesterday", now.AddDate(0, 0, -1), 0, EstadoExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{latest: &License{UserID: "u1", FechaFin: tt.fechaFin, Estado: true}}
			svc := fixedService(repo, now)

			st, err := svc.StatusFor(context.Background(), "u1")
			require.NoError(t, err)
			require.NotNil(t, st)
			assert.Equal(t, tt.wantDias, st.Dias)
			assert.Equal(t, tt.wantEstado, st.Estado)
		})
	}
}

func TestStatusForNoLicense(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)
	st, err := svc.StatusFor(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestStatusForRepoError(t *testing.T) {
	svc := NewService(&fakeRepo{err: errors.New("boom")}, nil)
	_, err := svc.StatusFor(context.Background(), "u1")
	assert.Error(t, err)
}

func TestIssueTrialSpansSevenInclusiveDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	svc := fixedService(repo, now)

	lic, err := svc.IssueTrial(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.True(t, lic.Estado)
	assert.Equal(t, 7, DaysRemaining(lic.FechaFin, now))
}

func TestRenewRejectsInvalidMonths(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)
	_, err := svc.Renew(context.Background(), "u1", 0)
	assert.Error(t, err)
}
