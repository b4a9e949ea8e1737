package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/tejas-estimator/internal/address"
	"github.com/sells-group/tejas-estimator/internal/artifact"
	"github.com/sells-group/tejas-estimator/internal/cascade"
	"github.com/sells-group/tejas-estimator/internal/geometry"
	"github.com/sells-group/tejas-estimator/internal/jurisdiction"
	"github.com/sells-group/tejas-estimator/internal/legal"
	"github.com/sells-group/tejas-estimator/internal/model"
	"github.com/sells-group/tejas-estimator/internal/monitoring"
)

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

type fixture struct {
	svc     *Service
	client  *mockClient
	store   *artifact.MemoryStore
	metrics *monitoring.Metrics
	proj    geometry.Projection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := jurisdiction.Default()
	require.NoError(t, err)
	proj, err := geometry.ProjectionByCode("EPSG:2278")
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	client := &mockClient{}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	store := artifact.NewMemoryStore(8, time.Hour, clock)

	svc := NewService(
		reg,
		address.Default(),
		legal.Default(),
		cascade.NewResolver(client, metrics),
		geometry.NewPipeline(proj),
		store,
		metrics,
		Options{Clock: clock},
	)
	return &fixture{svc: svc, client: client, store: store, metrics: metrics, proj: proj}
}

// square returns a lon/lat polygon that is a 100 ft square in the projection.
func square(p geometry.Projection) *geom.Polygon {
	x0, y0, side := 3120000.0, 13840000.0, 100.0
	ring := make([]geom.Coord, 0, 5)
	for _, c := range [][2]float64{{x0, y0}, {x0 + side, y0}, {x0 + side, y0 + side}, {x0, y0 + side}, {x0, y0}} {
		lon, lat := p.Inverse(c[0], c[1])
		ring = append(ring, geom.Coord{lon, lat})
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}

func fortBendParcel(g geom.T) model.Feature {
	return model.Feature{
		Geometry: g,
		Attributes: map[string]any{
			"situssno":   json.Number("1234"),
			"situssnm":   "OAK GROVE",
			"situsstp":   "RD",
			"ownername":  "DOE JOHN",
			"legal":      "UNRESTRICTED RESERVE A",
			"quickrefid": "R123456",
			"propnumber": "5432-01",
		},
	}
}

func TestEstimate_AddressCascade(t *testing.T) {
	fx := newFixture(t)
	j, _ := fx.svc.Registry().Lookup("fortbend")
	clauses := cascade.AddressClauses(j.Fields, address.Parsed{HouseNumber: "1234", StreetName: "OAK GROVE", StreetType: "RD"})

	fx.client.On("Query", mock.Anything, j.Endpoint, clauses[0].Where).Return([]model.Feature{}, nil).Once()
	fx.client.On("Query", mock.Anything, j.Endpoint, clauses[1].Where).
		Return([]model.Feature{fortBendParcel(square(fx.proj))}, nil).Once()

	res, err := fx.svc.Estimate(context.Background(), Request{Address: "1234 Oak Grove Rd"})
	require.NoError(t, err)

	rec := res.Record
	assert.Equal(t, "fortbend", rec.Jurisdiction)
	assert.Equal(t, "number_name", rec.MatchTier)
	assert.Equal(t, "DOE JOHN", rec.Owner)
	assert.Nil(t, rec.Subdivision)
	require.NotNil(t, rec.LotReserve)
	assert.Equal(t, "RESERVE A", *rec.LotReserve)
	assert.InDelta(t, 400.0, rec.PerimeterFt, 0.01)
	assert.Equal(t, 0.23, rec.ParcelSizeAcres)
	assert.Contains(t, rec.MapsLink, "https://www.google.com/maps/search/?api=1&query=")

	require.NotNil(t, res.Artifact)
	assert.Equal(t, artifact.FormatKML, res.Artifact.Format)
	require.NotEmpty(t, res.Token)
	stored, err := fx.store.Get(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Artifact.Data, stored.Data)

	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.Estimates.WithLabelValues("fortbend", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.ArtifactsStored.WithLabelValues("kml")))
	fx.client.AssertExpectations(t)
}

func TestEstimate_QuickRefIDNoArtifact(t *testing.T) {
	fx := newFixture(t)
	j, _ := fx.svc.Registry().Lookup("fortbend")
	where := cascade.IdentifierClause(j.Fields, "R123456").Where
	fx.client.On("Query", mock.Anything, j.Endpoint, where).
		Return([]model.Feature{fortBendParcel(square(fx.proj))}, nil).Once()

	res, err := fx.svc.Estimate(context.Background(), Request{Jurisdiction: "FortBend", QuickRefID: "R123456", Artifact: "none"})
	require.NoError(t, err)
	assert.Equal(t, "identifier", res.Record.MatchTier)
	assert.Nil(t, res.Artifact)
	assert.Empty(t, res.Token)
	assert.Equal(t, 0, fx.store.Len())
}

func TestEstimate_Shapefile(t *testing.T) {
	fx := newFixture(t)
	fx.client.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.Feature{fortBendParcel(square(fx.proj))}, nil).Once()

	res, err := fx.svc.Estimate(context.Background(), Request{QuickRefID: "R123456", Artifact: "shapefile"})
	require.NoError(t, err)
	require.NotNil(t, res.Artifact)
	assert.Equal(t, "parcel_R123456.zip", res.Artifact.Filename)
}

func TestEstimate_NullGeometry(t *testing.T) {
	fx := newFixture(t)
	fx.client.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.Feature{fortBendParcel(nil)}, nil).Once()

	res, err := fx.svc.Estimate(context.Background(), Request{QuickRefID: "R123456"})
	require.NoError(t, err)
	assert.Zero(t, res.Record.ParcelSizeAcres)
	assert.Equal(t, model.NotAvailable, res.Record.MapsLink)
	assert.Nil(t, res.Artifact)
}

func TestEstimate_EmptyGeometry(t *testing.T) {
	fx := newFixture(t)
	fx.client.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.Feature{fortBendParcel(geom.NewPolygon(geom.XY))}, nil).Once()

	res, err := fx.svc.Estimate(context.Background(), Request{QuickRefID: "R123456"})
	require.NoError(t, err)
	assert.Zero(t, res.Record.ParcelSizeAcres)
	assert.Equal(t, model.NotAvailable, res.Record.MapsLink)
	assert.Nil(t, res.Artifact)
	assert.Empty(t, res.Token)
}

func TestEstimate_UnsupportedCountiesShareOneLabel(t *testing.T) {
	fx := newFixture(t)
	for i := 0; i < 50; i++ {
		_, err := fx.svc.Estimate(context.Background(), Request{Jurisdiction: fmt.Sprintf("bogus-%d", i), Address: "1 Main St"})
		require.Error(t, err)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(fx.metrics.Estimates))
	assert.Equal(t, 50.0, testutil.ToFloat64(fx.metrics.Estimates.WithLabelValues("unknown", "invalid_input")))
	assert.Equal(t, 1, testutil.CollectAndCount(fx.metrics.EstimateDuration))
}

func TestEstimate_Errors(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"unsupported county", Request{Jurisdiction: "travis", Address: "1 Main St"}, model.ErrInvalidInput},
		{"no selector", Request{}, model.ErrInvalidInput},
		{"unparseable address", Request{Address: "RD"}, model.ErrInvalidInput},
		{"bad artifact format", Request{Address: "1 Main St", Artifact: "pdf"}, model.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)
			_, err := fx.svc.Estimate(context.Background(), tc.req)
			assert.True(t, eris.Is(err, tc.want), "got %v", err)
			fx.client.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestEstimate_NotFoundAndUnavailable(t *testing.T) {
	fx := newFixture(t)
	fx.client.On("Query", mock.Anything, mock.Anything, mock.Anything).Return([]model.Feature{}, nil).Once()

	_, err := fx.svc.Estimate(context.Background(), Request{Address: "Main"})
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.Estimates.WithLabelValues("fortbend", "not_found")))

	fx = newFixture(t)
	fx.client.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.Wrap(model.ErrDatastoreUnavailable, "status 503")).Once()

	_, err = fx.svc.Estimate(context.Background(), Request{Address: "Main"})
	assert.True(t, eris.Is(err, model.ErrDatastoreUnavailable))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.Estimates.WithLabelValues("fortbend", "datastore_unavailable")))
}
