package cascade

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/tejas-estimator/internal/model"
)

// mockClient implements arcgis.Client for testing.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) Query(ctx context.Context, endpoint, where string) ([]model.Feature, error) {
	args := m.Called(ctx, endpoint, where)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Feature), args.Error(1)
}
