package ingest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bloodbuddy/donor-cli/internal/geo"
	"github.com/bloodbuddy/donor-cli/internal/model"
)

type mockLocator struct {
	mock.Mock
}

func (m *mockLocator) Resolve(ctx context.Context, address string) geo.Location {
	args := m.Called(ctx, address)
	return args.Get(0).(geo.Location)
}

func (m *mockLocator) Fallback() geo.Location {
	args := m.Called()
	return args.Get(0).(geo.Location)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertDonor(ctx context.Context, d model.Donor) (string, error) {
	args := m.Called(ctx, d)
	return args.String(0), args.Error(1)
}

func (m *mockStore) ListDonors(ctx context.Context) ([]model.Donor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Donor), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error    { return m.Called(ctx).Error(0) }
func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                      { return m.Called().Error(0) }
