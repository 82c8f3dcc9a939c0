package webrelay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStateValues(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		want    []string
		wantErr bool
	}{
		{
			name: "two relays",
			xml:  `<datavalues><relay1state>1</relay1state><relay2state>0</relay2state></datavalues>`,
			want: []string{"1", "0"},
		},
		{
			name: "whitespace between elements",
			xml:  "<datavalues>\n  <relay1state> 0 </relay1state>\n  <relay2state>1</relay2state>\n</datavalues>",
			want: []string{"0", "1"},
		},
		{
			name: "nested under another root",
			xml:  `<response><datavalues><a>1</a></datavalues><datavalues><b>0</b></datavalues></response>`,
			want: []string{"1"},
		},
		{
			name: "empty element",
			xml:  `<datavalues><relay1state/></datavalues>`,
			want: []string{""},
		},
		{name: "missing element", xml: `<state><relay1state>1</relay1state></state>`, wantErr: true},
		{name: "truncated", xml: `<datavalues><relay1state>1</relay1state>`, wantErr: true},
		{name: "not xml", xml: `relay1state=1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStateValues([]byte(tt.xml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequests(t *testing.T) {
	c := NewClient("192.168.1.20", 80, 0)

	assert.Equal(t, "http://192.168.1.20:80/stateFull.xml", c.URL(nil))
	assert.Equal(t, "http://192.168.1.20:80/stateFull.xml?relay3State=1", c.URL(SetStateRequest(3, PhysicalOn)))
	assert.Equal(t, "http://192.168.1.20:80/stateFull.xml?relay4State=2&pulseTime4=10", c.URL(PulseRequest(4, 10)))
}
