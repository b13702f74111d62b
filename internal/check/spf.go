package check

import (
	"fmt"
	"strings"
)

// spfMechanisms is the RFC 7208 §5 mechanism set. "all" takes no value; the rest accept an optional
// ":value" or "/cidr" suffix that this lint does not interpret further.
var spfMechanisms = map[string]bool{
	"all": true, "include": true, "a": true, "mx": true, "ptr": true,
	"ip4": true, "ip6": true, "exists": true,
}

var spfModifiers = map[string]bool{"redirect": true, "exp": true}

const spfQualifiers = "+-~?"

// validateSPF checks record's terms against the RFC 7208 mechanism/qualifier/modifier grammar.
// Recursive include:/redirect= expansion is explicitly out of scope - this only checks
// that the record parses, not that the chain it names resolves to anything.
func validateSPF(record string) []string {
	var errs []string
	terms := strings.Fields(record)
	if len(terms) == 0 || terms[0] != "v=spf1" {
		return []string{"record does not begin with the v=spf1 version term"}
	}

	seenRedirect := false
	for _, term := range terms[1:] {
		if err := validateTerm(term); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if strings.HasPrefix(term, "redirect=") {
			seenRedirect = true
		}
	}

	if seenRedirect {
		for _, term := range terms[1:] {
			if stripQualifier(term) == "all" {
				errs = append(errs, "redirect= modifier should not be combined with an \"all\" mechanism")
				break
			}
		}
	}

	return errs
}

// stripQualifier removes a leading +, -, ~ or ? from a mechanism term.
func stripQualifier(term string) string {
	if len(term) > 0 && strings.IndexByte(spfQualifiers, term[0]) >= 0 {
		return term[1:]
	}
	return term
}

func validateTerm(term string) error {
	if eqIx := strings.Index(term, "="); eqIx > 0 && !strings.ContainsAny(term[:eqIx], ":/") {
		name := term[:eqIx]
		if !spfModifiers[name] {
			return fmt.Errorf("unknown modifier %q", term)
		}
		if len(term) == eqIx+1 {
			return fmt.Errorf("modifier %q has no value", term)
		}
		return nil
	}

	rest := stripQualifier(term)
	if len(rest) == 0 {
		return fmt.Errorf("empty mechanism term %q", term)
	}

	name := rest
	if ix := strings.IndexAny(rest, ":/"); ix >= 0 {
		name = rest[:ix]
	}

	if !spfMechanisms[name] {
		return fmt.Errorf("unknown mechanism %q", term)
	}

	if name == "all" && name != rest {
		return fmt.Errorf("\"all\" mechanism does not take a value: %q", term)
	}

	return nil
}
