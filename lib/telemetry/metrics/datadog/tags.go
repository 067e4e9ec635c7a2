package datadog

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// getTags accepts whatever the YAML decoder produced for `tags` (usually []any) and returns it as strings.
func getTags(tags any) []string {
	if tags == nil {
		return []string{}
	}

	out, err := yaml.Marshal(tags)
	if err != nil {
		return []string{}
	}

	var parsed []string
	if err = yaml.Unmarshal(out, &parsed); err != nil || parsed == nil {
		return []string{}
	}
	return parsed
}

// toDatadogTags returns `key:value` pairs sorted by key.
func toDatadogTags(tags map[string]string) []string {
	pairs := make([]string, 0, len(tags))
	for key, val := range tags {
		pairs = append(pairs, fmt.Sprintf("%s:%s", key, val))
	}

	slices.Sort(pairs)
	return pairs
}
