package webrelay

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// StatePath is the status and command document served by ControlByWeb units.
const StatePath = "/stateFull.xml"

// Physical values of the relayNState parameter.
const (
	PhysicalOff   = "0"
	PhysicalOn    = "1"
	PhysicalPulse = "2"
)

const dataValuesElement = "datavalues"

var errNoDataValues = errors.New("no datavalues element in status document")

// Param is one query parameter of a command request.
type Param struct {
	Name  string
	Value string
}

// RelayStateParam is relay{N}State for the 1-based port n.
func RelayStateParam(n int) string {
	return "relay" + strconv.Itoa(n) + "State"
}

// PulseTimeParam is pulseTime{N} for the 1-based port n.
func PulseTimeParam(n int) string {
	return "pulseTime" + strconv.Itoa(n)
}

// SetStateRequest builds relay{N}State={bit}.
func SetStateRequest(port int, bit string) []Param {
	return []Param{{Name: RelayStateParam(port), Value: bit}}
}

// PulseRequest builds relay{N}State=2&pulseTime{N}={seconds}.
func PulseRequest(port int, seconds int) []Param {
	return []Param{
		{Name: RelayStateParam(port), Value: PhysicalPulse},
		{Name: PulseTimeParam(port), Value: strconv.Itoa(seconds)},
	}
}

// ParseStateValues locates the first datavalues element and returns the text
// content of each of its child elements, in document order.
func ParseStateValues(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	inside := false
	depth := 0
	var text strings.Builder
	values := make([]string, 0, 8)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed status document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !inside {
				if t.Name.Local == dataValuesElement {
					inside = true
				}
				continue
			}
			depth++
			if depth == 1 {
				text.Reset()
			}

		case xml.CharData:
			if inside && depth >= 1 {
				text.Write(t)
			}

		case xml.EndElement:
			if !inside {
				continue
			}
			if depth == 0 {
				return values, nil
			}
			if depth == 1 {
				values = append(values, strings.TrimSpace(text.String()))
			}
			depth--
		}
	}

	if !inside {
		return nil, errNoDataValues
	}
	return nil, fmt.Errorf("malformed status document: unterminated %s element", dataValuesElement)
}
