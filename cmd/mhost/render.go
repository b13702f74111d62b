package main

import (
	"encoding/json"
	"fmt"

	"github.com/lukaspustina/mhost/internal/check"
	"github.com/lukaspustina/mhost/internal/model"
)

// render prints a Lookups aggregate in either the default text summary or JSON, according to the
// -o flag. The text summary prints one "Received N (min a, max b records) answers from M servers"
// line per query.
func render(lookups model.Lookups) {
	if cfg.output == "json" {
		renderJSON(lookups)
		return
	}
	for _, l := range lookups.Items {
		renderSummaryLine(l)
		if cfg.verbose {
			renderRecords(l)
		}
	}
}

func renderJSON(lookups model.Lookups) {
	data, err := json.MarshalIndent(lookups, "", "  ")
	if err != nil {
		fmt.Fprintln(stderr, "Fatal:", consts.ProgramName, ":", err)
		return
	}
	fmt.Fprintln(stdout, string(data))
}

// renderSummaryLine reports "Received N (min a, max b records) answers from M servers" for one
// query: N counts the Records responses, a and b are their smallest and largest record counts, and
// M counts every Response in the Lookup.
func renderSummaryLine(l model.Lookup) {
	min, max := -1, -1
	answered := 0
	for _, r := range l.Responses {
		rr, ok := r.(*model.RecordsResponse)
		if !ok {
			continue
		}
		answered++
		n := len(rr.Records)
		if min == -1 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	if min == -1 {
		min, max = 0, 0
	}
	fmt.Fprintf(stdout, "%s %s: Received %d (min %d, max %d records) answers from %d servers\n",
		l.Query.Name, l.Query.TypeString(), answered, min, max, len(l.Responses))
}

func renderRecords(l model.Lookup) {
	for _, r := range l.Responses {
		rr, ok := r.(*model.RecordsResponse)
		if !ok {
			continue
		}
		for _, rec := range rr.Records {
			fmt.Fprintf(stdout, "  %s %s %v\n", r.Server().String(), rec.Type(), rec.Data())
		}
	}
}

// renderCheck prints the Check pipeline's findings and reports whether any lint issue was found,
// which runCheck uses to decide the exit code when --strict is set.
func renderCheck(result check.Result) bool {
	issues := false

	if result.SOA != nil {
		if result.SOA.Skipped {
			fmt.Fprintln(stdout, "SOA: skipped:", result.SOA.SkipReason)
		} else if !result.SOA.Synced || result.SOA.StructuralDivergence || result.SOA.DefaultPoolMismatch {
			issues = true
			fmt.Fprintln(stdout, "SOA: DIVERGENT", result.SOA.SerialDivergence)
		} else {
			fmt.Fprintln(stdout, "SOA: in sync")
		}
	}

	if result.CNAME != nil {
		if result.CNAME.Skipped {
			fmt.Fprintln(stdout, "CNAME: skipped:", result.CNAME.SkipReason)
		} else if result.CNAME.ApexHasCNAME || len(result.CNAME.MXTargetsCNAME) > 0 || len(result.CNAME.SRVTargetsCNAME) > 0 || len(result.CNAME.CNAMEChains) > 0 {
			issues = true
			fmt.Fprintln(stdout, "CNAME: misplaced", result.CNAME)
		} else {
			fmt.Fprintln(stdout, "CNAME: ok")
		}
	}

	if result.SPF != nil {
		if result.SPF.Skipped {
			fmt.Fprintln(stdout, "SPF: skipped:", result.SPF.SkipReason)
		} else if !result.SPF.Valid || result.SPF.Count > 1 {
			issues = true
			fmt.Fprintln(stdout, "SPF: invalid:", result.SPF.Errors)
		} else {
			fmt.Fprintln(stdout, "SPF: ok")
		}
	}

	return issues
}
