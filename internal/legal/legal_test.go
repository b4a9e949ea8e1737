package legal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		legal string
		want  Breakdown
	}{
		{
			name:  "subdivision block lot",
			legal: "ABC ESTATES, BLOCK 3, LOT 7",
			want:  Breakdown{Subdivision: strp("Abc Estates"), Block: strp("3"), LotOrReserve: strp("LOT 7")},
		},
		{
			name:  "unrestricted reserve",
			legal: "UNRESTRICTED RESERVE A",
			want:  Breakdown{LotOrReserve: strp("RESERVE A")},
		},
		{
			name:  "commercial reserve",
			legal: "COMMERCIAL RESERVE B",
			want:  Breakdown{LotOrReserve: strp("RESERVE B")},
		},
		{
			name:  "lower case input",
			legal: "sienna plantation sec 4 block 2 lot 11",
			want:  Breakdown{Subdivision: strp("Sienna Plantation Sec 4"), Block: strp("2"), LotOrReserve: strp("LOT 11")},
		},
		{
			name:  "acres terminates subdivision",
			legal: "WILLIAM HALL SURVEY, ACRES 5.25",
			want:  Breakdown{Subdivision: strp("William Hall Survey")},
		},
		{
			name:  "quoted reserve",
			legal: `GREATWOOD VILLAGE RESERVE "B"`,
			want:  Breakdown{Subdivision: strp("Greatwood Village"), LotOrReserve: strp(`RESERVE "B"`)},
		},
		{
			name:  "no keywords",
			legal: "ABSTRACT 123 TRACT 4",
			want:  Breakdown{},
		},
		{
			name:  "lot first",
			legal: "LOT 5 BLOCK 12 RIVERSTONE",
			want:  Breakdown{Block: strp("12"), LotOrReserve: strp("LOT 5")},
		},
		{
			name:  "empty",
			legal: "",
			want:  Breakdown{},
		},
	}

	p := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Parse(tt.legal))
		})
	}
}

func TestParse_WordBoundaries(t *testing.T) {
	p := Default()

	// BLOCKHOUSE and LOTUS are not keywords.
	got := p.Parse("BLOCKHOUSE LOTUS PARK")
	assert.Nil(t, got.Subdivision)
	assert.Nil(t, got.Block)
	assert.Nil(t, got.LotOrReserve)
}

func TestNewParser_CustomKeywords(t *testing.T) {
	kw := DefaultKeywords()
	kw.Block = append(kw.Block, "BLK")
	kw.SubdivisionTerminators = append(kw.SubdivisionTerminators, "BLK")

	p, err := NewParser(kw)
	require.NoError(t, err)

	got := p.Parse("PECAN GROVE BLK 9 LOT 2")
	require.NotNil(t, got.Subdivision)
	assert.Equal(t, "Pecan Grove", *got.Subdivision)
	require.NotNil(t, got.Block)
	assert.Equal(t, "9", *got.Block)
}

func TestNewParser_EmptyKeywords(t *testing.T) {
	_, err := NewParser(Keywords{Block: []string{"BLOCK"}})
	require.Error(t, err)
}
