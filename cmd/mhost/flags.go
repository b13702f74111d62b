package main

import "flag"

// registerGlobalFlags registers the flags that must precede the command verb: pool construction,
// concurrency budgets, output and informational flags.
func registerGlobalFlags(fs *flag.FlagSet, c *config) {
	fs.Var(&c.nameservers, "nameserver", "name server spec, e.g. udp:8.8.8.8:53 (repeatable)")
	fs.Var(&c.nameservers, "s", "alias for --nameserver")
	fs.StringVar(&c.nameserversFromFile, "nameservers-from-file", "", "read name server specs, one per line, from FILE")
	fs.StringVar(&c.nameserversFromFile, "f", "", "alias for --nameservers-from-file")
	fs.BoolVar(&c.predefined, "predefined", false, "add the built-in pool of well-known public resolvers")
	fs.BoolVar(&c.predefined, "p", false, "alias for --predefined")
	fs.Var(&c.predefinedFilter, "predefined-filter", "restrict --predefined to these transports (repeatable)")
	fs.BoolVar(&c.listPredefined, "list-predefined", false, "print the built-in resolver pool and exit")
	fs.BoolVar(&c.noSystemNameservers, "no-system-nameservers", false, "don't add resolv.conf name servers to the lookup pool")
	fs.StringVar(&c.resolvConfPath, "resolv-conf", "", "path to resolv.conf (default /etc/resolv.conf)")
	fs.BoolVar(&c.noSystemLookups, "no-system-lookups", false, "don't additionally query the system resolver pool")
	fs.BoolVar(&c.noSystemLookups, "S", false, "alias for --no-system-lookups")
	fs.Var(&c.systemNameservers, "system-nameserver", "override system resolver pool members (repeatable)")
	fs.BoolVar(&c.useSystemResolvOpt, "use-system-resolv-opt", false, "derive ndots/search domain from resolv.conf")
	fs.IntVar(&c.ndots, "ndots", 0, "minimum dots before a bare name is considered fully qualified (0 = default 1)")
	fs.StringVar(&c.searchDomain, "search-domain", "", "domain appended to under-qualified names")
	fs.IntVar(&c.limit, "limit", 100, "cap on pool size and CIDR expansion")

	fs.IntVar(&c.maxConcurrentServers, "max-concurrent-servers", 0, "global concurrency budget M (0 = default)")
	fs.IntVar(&c.maxConcurrentRequests, "max-concurrent-requests", 0, "per-server concurrency budget K (0 = default)")
	fs.IntVar(&c.retries, "retries", 0, "retries per (server, query) on transport failure")
	fs.IntVar(&c.timeoutSeconds, "timeout", 5, "per-attempt timeout in seconds")
	fs.StringVar(&c.resolversMode, "resolvers-mode", "multi", "multi (query every server) or uni (query one at random)")
	fs.StringVar(&c.resolversMode, "m", "multi", "alias for --resolvers-mode")
	fs.BoolVar(&c.waitMultipleResponses, "wait-multiple-responses", false, "wait for every server's terminal response before settling a query")
	fs.BoolVar(&c.noAbortOnError, "no-abort-on-error", false, "don't cancel a query's siblings when a server errors")
	fs.BoolVar(&c.noAbortOnTimeout, "no-abort-on-timeout", false, "don't cancel a query's siblings on a per-attempt timeout")
	fs.BoolVar(&c.noAborts, "no-aborts", false, "shorthand for both --no-abort-on-error and --no-abort-on-timeout")

	fs.StringVar(&c.output, "o", "summary", "output mode: summary or json")
	fs.StringVar(&c.output, "output", "summary", "alias for -o")
	fs.Var(&c.outputOptions, "output-options", "output-mode-specific K=V option (repeatable)")
	fs.BoolVar(&c.showErrors, "show-errors", false, "include Error/Timeout responses in summary output")
	fs.BoolVar(&c.quiet, "quiet", false, "suppress informational output")
	fs.BoolVar(&c.quiet, "q", false, "alias for --quiet")
	fs.BoolVar(&c.noColor, "no-color", false, "disable ANSI color in terminal output")
	fs.BoolVar(&c.ascii, "ascii", false, "use ASCII-only output glyphs")
	fs.BoolVar(&c.verbose, "verbose", false, "print each server's individual records in summary mode")
	fs.BoolVar(&c.verbose, "v", false, "alias for --verbose")
	fs.BoolVar(&c.debug, "debug", false, "print engine concurrency stats to stderr")

	fs.StringVar(&c.constrainUser, "constrain-user", "", "setuid to this user after startup (requires root; a no-op on Linux)")
	fs.StringVar(&c.constrainGroup, "constrain-group", "", "setgid to this group after startup (requires root; a no-op on Linux)")
	fs.StringVar(&c.chrootDir, "chroot-dir", "", "chroot to this directory after startup (requires root)")

	fs.BoolVar(&c.help, "h", false, "show usage and exit")
	fs.BoolVar(&c.help, "help", false, "show usage and exit")
	fs.BoolVar(&c.version, "version", false, "print version and exit")
}

// registerCommandFlags registers the flags specific to one subcommand. Unknown commands
// get no extra flags; mainExecute reports the "unknown command" error after parsing.
func registerCommandFlags(fs *flag.FlagSet, c *config, command string) {
	switch command {
	case "lookup":
		fs.Var(&c.recordTypes, "t", "record type to query, e.g. A (repeatable)")
		fs.Var(&c.recordTypes, "type", "alias for -t")
		fs.BoolVar(&c.allTypes, "all", false, "query every modeled record type")
	case "discover":
		fs.IntVar(&c.rndNamesNumber, "rnd-names-number", 0, "random labels probed for wildcard detection (0 = default)")
		fs.IntVar(&c.rndNamesLen, "rnd-names-len", 0, "length of each random probe label (0 = default)")
		fs.StringVar(&c.wordlistFromFile, "wordlist-from-file", "", "path to a subdomain wordlist, one label per line")
		fs.BoolVar(&c.subdomainsOnly, "subdomains-only", false, "restrict results to direct subdomains of the apex")
		fs.BoolVar(&c.showPartialResults, "show-partial-results", false, "report partial progress if a step is aborted")
	case "check":
		fs.BoolVar(&c.noSOA, "no-soa", false, "skip the SOA authority consistency check")
		fs.BoolVar(&c.noCNAMEs, "no-cnames", false, "skip the CNAME placement check")
		fs.BoolVar(&c.noSPF, "no-spf", false, "skip the SPF record validity check")
		fs.BoolVar(&c.showIntermediateLookups, "show-intermediate-lookups", false, "include intermediate NS/SOA/TXT lookups in output")
		fs.BoolVar(&c.showPartialResults, "show-partial-results", false, "report partial progress if a check step is aborted")
		fs.BoolVar(&c.strict, "strict", false, "exit 3 if any lint check finds an issue")
	case "server-lists":
		fs.StringVar(&c.serverListsOutputFile, "output-file", "", "write the fetched server list to FILE instead of stdout")
	}
}
