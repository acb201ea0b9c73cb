package checks

import (
	"math"

	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/provenance"
)

// investmentCosts are the cost types that are annualised over a lifetime.
var investmentCosts = []string{"energy_cap", "storage_cap", "resource_cap", "resource_area", "purchase"}

// Final runs the cross-cutting checks over the assembled model run and fills
// in costs.<class>.depreciation_rate wherever investment costs are present.
// Computed values are labelled in debug under nodes.<n>.techs.<t>.costs...
// and links.<l>.techs.<t>.costs...
func Final(run *nested.Document, debug *provenance.Tracker) Report {
	var r Report
	for _, section := range []string{"nodes", "links"} {
		locations := run.Doc(section)
		for _, loc := range locations.Keys() {
			raw, _ := locations.Child(loc)
			located, _ := raw.(*nested.Document)
			techs := located.Doc("techs")
			for _, tech := range techs.Keys() {
				prefix := section + "." + loc + ".techs." + tech
				depreciation(&r, tech, techs.Doc(tech), debug, prefix)
			}
		}
	}
	return r
}

func depreciation(r *Report, tech string, settings *nested.Document, debug *provenance.Tracker, prefix string) {
	costs := settings.Doc("costs")
	for _, class := range costs.Keys() {
		classCosts := costs.Doc(class)
		if !hasAny(classCosts, investmentCosts) {
			continue
		}
		lifetime, hasLifetime := settings.Float("constraints.lifetime")
		interest, hasInterest := classCosts.Float("interest_rate")
		if !hasLifetime || !hasInterest {
			r.Errorf("Must specify constraints.lifetime and costs.%s.interest_rate when specifying fixed `%s` costs for `%s`", class, class, tech)
			continue
		}

		var rate float64
		switch {
		case interest == 0:
			r.Warnf("`%s` interest rate of zero for technology %s, setting depreciation rate as 1/lifetime.", class, tech)
			rate = 1 / lifetime
		case math.IsInf(lifetime, 1):
			r.Warnf("No investment %s cost will be incurred for `%s` as lifetime is infinite.", class, tech)
			rate = 0
		default:
			growth := math.Pow(1+interest, lifetime)
			if math.IsInf(growth, 1) {
				// annuity factor tends to the interest rate as the lifetime grows
				rate = interest
				break
			}
			rate = interest * growth / (growth - 1)
		}
		_ = classCosts.Replace("depreciation_rate", rate)
		if debug != nil {
			debug.Record(prefix+".costs."+class+".depreciation_rate",
				"Computed from constraints.lifetime and costs."+class+".interest_rate")
		}
	}
}

func hasAny(d *nested.Document, keys []string) bool {
	for _, k := range keys {
		if v, ok := d.Child(k); ok && v != nil {
			return true
		}
	}
	return false
}
