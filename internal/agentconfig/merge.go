package agentconfig

import "encoding/json"

// MergeConfigs deep-merges override onto base and returns a new Config;
// neither input is mutated. override is a raw JSON-object-shaped map (as
// parsed from a partial config document) rather than a full Config, so that
// keys genuinely absent from override are distinguishable from keys
// explicitly set to their zero value — undefined keys preserve base,
// explicit null replaces, arrays replace wholesale, plain objects merge
// recursively (§4.4).
func MergeConfigs(base *Config, override map[string]any) (*Config, error) {
	baseMap, err := toMap(base)
	if err != nil {
		return nil, err
	}

	merged := deepMerge(baseMap, override).(map[string]any)

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMerge merges override onto base: maps merge key by key, anything else
// (arrays, scalars, explicit null) replaces base wholesale.
func deepMerge(base, override any) any {
	baseMap, baseIsMap := base.(map[string]any)
	overrideMap, overrideIsMap := override.(map[string]any)

	if baseIsMap && overrideIsMap {
		out := make(map[string]any, len(baseMap))
		for k, v := range baseMap {
			out[k] = v
		}
		for k, v := range overrideMap {
			if existing, ok := out[k]; ok {
				out[k] = deepMerge(existing, v)
			} else {
				out[k] = v
			}
		}
		return out
	}
	return override
}
