package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/output"
)

// Overrides inspects an override layer before it is merged into config.
// When both sides carry node coordinates in different coordinate systems
// the incumbent coordinates are deleted from config so the new ones do not
// end up mixed with them.
func Overrides(config, override *nested.Document) Report {
	var r Report

	configKeys := config.FlatKeys()
	existing := make(map[string]struct{}, len(configKeys))
	for _, k := range configKeys {
		existing[k] = struct{}{}
	}

	var overrideCoordKeys []string
	for _, e := range override.Flatten() {
		if _, ok := existing[e.Key]; ok {
			output.Logger.Info("Override applied", "key", e.Key, "from", config.GetOr(e.Key, nil), "to", e.Value)
		} else {
			output.Logger.Info("Override applied as new configuration", "key", e.Key, "value", e.Value)
		}
		if strings.Contains(e.Key, "coordinates.") {
			overrideCoordKeys = append(overrideCoordKeys, e.Key)
		}
	}

	var configCoordKeys []string
	for _, k := range configKeys {
		if strings.Contains(k, "coordinates.") {
			configCoordKeys = append(configCoordKeys, k)
		}
	}
	if len(configCoordKeys) == 0 || len(overrideCoordKeys) == 0 {
		return r
	}

	from := coordinateSystem(configCoordKeys)
	to := coordinateSystem(overrideCoordKeys)
	if strings.Join(from, ",") == strings.Join(to, ",") {
		return r
	}
	for _, k := range configCoordKeys {
		_ = config.Delete(k)
	}
	r.Warnf("Updated from coordinate system %s to %s, using overrides", formatSet(from), formatSet(to))
	return r
}

// coordinateSystem returns the sorted set of coordinate component names
// ("lat"/"lon" or "x"/"y") used by the given flat keys.
func coordinateSystem(keys []string) []string {
	set := make(map[string]struct{})
	for _, k := range keys {
		i := strings.LastIndex(k, "coordinates.")
		set[k[i+len("coordinates."):]] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func formatSet(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("'%s'", s)
	}
	return "{" + strings.Join(quoted, ", ") + "}"
}
