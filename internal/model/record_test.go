package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateRecord_JSONShape(t *testing.T) {
	block := "3"
	rec := EstimateRecord{
		Owner:           "SMITH JOHN",
		Block:           &block,
		ParcelSizeAcres: 0.23,
		PerimeterFt:     400,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "SMITH JOHN", out["owner"])
	assert.Equal(t, "3", out["block"])
	assert.Nil(t, out["subdivision"])
	assert.Contains(t, out, "lot_reserve")
	assert.InDelta(t, 0.23, out["parcel_size_acres"], 0.0001)
	assert.NotContains(t, out, "artifact_url")
}

func TestFeatureAttribute(t *testing.T) {
	f := Feature{Attributes: map[string]any{"owner": "DOE", "deed": nil}}

	v, ok := f.Attribute("owner")
	assert.True(t, ok)
	assert.Equal(t, "DOE", v)

	_, ok = f.Attribute("deed")
	assert.False(t, ok, "null attributes count as missing")

	_, ok = f.Attribute("legal")
	assert.False(t, ok)
}
