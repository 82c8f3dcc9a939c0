package devices

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/relay-config-v1.json
var relayConfigSchemaJSON string

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("relay-config-v1.json",
		strings.NewReader(relayConfigSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("relay-config-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateRelays checks the relays block: required keys per entry, value
// ranges from the embedded schema and unique device IDs.
func (v *Validator) ValidateRelays(configs []types.RelayDeviceConfig) error {
	if len(configs) == 0 {
		return fmt.Errorf("%w: relay configuration is empty, please configure relay devices", types.ErrInvalidConfiguration)
	}

	for i, cfg := range configs {
		if missing := cfg.MissingFields(); len(missing) > 0 {
			return fmt.Errorf("%w: relays[%d] is missing %s: %s",
				types.ErrInvalidConfiguration, i, strings.Join(missing, ", "), cfg)
		}
	}

	data, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to marshal relay configuration: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: schema validation failed: %v", types.ErrInvalidConfiguration, err)
	}

	seen := make(map[string]int, len(configs))
	for i, cfg := range configs {
		id := strings.ToLower(cfg.DeviceID)
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: relays[%d] and relays[%d] share deviceId %q",
				types.ErrInvalidConfiguration, prev, i, cfg.DeviceID)
		}
		seen[id] = i
	}

	return nil
}
