package geo

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bloodbuddy/donor-cli/pkg/geocode"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Search(ctx context.Context, query string) ([]geocode.Candidate, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geocode.Candidate), args.Error(1)
}
