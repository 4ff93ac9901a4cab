package viz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Event
	}{
		{name: "source", in: `{"type":"source","source":"dn_time"}`, want: SourceSwitch{Source: "dn_time"}},
		{name: "brush pixels", in: `{"type":"brush","selection":[10,250]}`, want: BrushEnd{Selection: [2]float64{10, 250}}},
		{name: "brush domain", in: `{"type":"brush","selection":[3,1],"domain":true}`, want: BrushEnd{Selection: [2]float64{3, 1}, Domain: true}},
		{name: "toggle", in: `{"type":"toggle","category":"weapon"}`, want: CategoryToggle{Category: "weapon"}},
		{name: "move", in: `{"type":"move","view":"night","lat":41.9,"lon":-87.7,"zoom":12}`, want: MapMove{View: "night", Lat: 41.9, Lon: -87.7, Zoom: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.Fields(tt.name)[0], EventType(got))

			data, err := EncodeEvent(got)
			require.NoError(t, err)
			again, err := DecodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"type":"zoom"}`,
		`{"type":"source"}`,
		`{"type":"brush","selection":[1]}`,
		`{"type":"toggle"}`,
		`{"type":"move","view":"dusk"}`,
	} {
		_, err := DecodeEvent([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestEncodeEvent_RejectsInternalEvents(t *testing.T) {
	_, err := EncodeEvent(FetchComplete{Token: 1})
	assert.Error(t, err)
}
