package main

import (
	"fmt"
	"io"
	"text/template"
)

const usageMessageTemplate = `
NAME
          {{.ProgramName}} -- massively-parallel DNS interrogation tool

SYNOPSIS
          {{.ProgramName}} [global-opts] <command> [cmd-opts] <target>

DESCRIPTION
          {{.ProgramName}} issues the same (or derived) query to many independent recursive or
          authoritative name servers simultaneously, aggregates the returned resource records, and
          reports divergences, misconfigurations and discovered topology.

COMMANDS
          lookup       issue a query batch against the configured pool
          discover     multi-step subdomain/topology discovery walk
          check        zone-health lint: SOA consistency, CNAME placement, SPF validity
          server-lists fetch a list of public name servers (public-dns, opennic)

EXAMPLES
          $ {{.ProgramName}} -s 8.8.8.8 -s 1.1.1.1 lookup example.com -t A
          $ {{.ProgramName}} discover example.com
          $ {{.ProgramName}} check example.com --no-spf
          $ {{.ProgramName}} -o json lookup example.com -t A

OPTIONS
`

func usage(out io.Writer) {
	tmpl, err := template.New("usage").Parse(usageMessageTemplate)
	if err != nil {
		panic(err)
	}
	if err := tmpl.Execute(out, consts); err != nil {
		panic(err)
	}
	flagSet.SetOutput(out)
	flagSet.PrintDefaults()
	fmt.Fprintln(out, "\nVersion:", consts.Version)
}
