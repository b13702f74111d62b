// mhost issues the same query to many independent name servers simultaneously and reports
// divergences, misconfigurations and discovered topology.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/lukaspustina/mhost/internal/check"
	"github.com/lukaspustina/mhost/internal/constants"
	"github.com/lukaspustina/mhost/internal/discover"
	"github.com/lukaspustina/mhost/internal/engine"
	"github.com/lukaspustina/mhost/internal/model"
	"github.com/lukaspustina/mhost/internal/nameserver"
	"github.com/lukaspustina/mhost/internal/osutil"
	"github.com/lukaspustina/mhost/internal/planner"
	"github.com/lukaspustina/mhost/internal/resolvconf"
	"github.com/lukaspustina/mhost/internal/serverlists"
	"github.com/lukaspustina/mhost/internal/singleresolver"
)

var (
	consts = constants.Get()
	cfg    *config

	stdout io.Writer
	stderr io.Writer

	flagSet *flag.FlagSet
)

// Exit codes.
const (
	exitSuccess            = 0
	exitUserError          = 1
	exitOperationalFailure = 2
	exitLintIssues         = 3
)

func fatal(code int, args ...interface{}) int {
	fmt.Fprint(stderr, "Fatal: ", consts.ProgramName, ": ")
	fmt.Fprintln(stderr, args...)
	return code
}

func mainInit(out, err io.Writer) {
	cfg = &config{}
	stdout = out
	stderr = err
}

func main() {
	mainInit(os.Stdout, os.Stderr)
	os.Exit(mainExecute(os.Args))
}

// mainExecute is the whole of mhost's CLI behavior, split out from main() so tests can drive it
// without touching os.Args/os.Exit.
func mainExecute(args []string) int {
	flagSet = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	registerGlobalFlags(flagSet, cfg)

	if len(args) < 2 {
		usage(stdout)
		return exitUserError
	}

	// The command verb comes before command-specific flags but after global flags may appear
	// anywhere up to it; for simplicity (and because flag.FlagSet stops at the first non-flag
	// argument) global flags must precede the command, and command flags follow it.
	if err := flagSet.Parse(args[1:]); err != nil {
		return exitUserError
	}
	if cfg.help {
		usage(stdout)
		return exitSuccess
	}
	if cfg.version {
		fmt.Fprintln(stdout, consts.ProgramName, "Version:", consts.Version)
		return exitSuccess
	}

	if len(cfg.constrainUser) > 0 || len(cfg.constrainGroup) > 0 || len(cfg.chrootDir) > 0 {
		if err := osutil.Constrain(cfg.constrainUser, cfg.constrainGroup, cfg.chrootDir); err != nil {
			return fatal(exitOperationalFailure, err)
		}
		if cfg.debug {
			fmt.Fprintln(stderr, osutil.ConstraintReport())
		}
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return fatal(exitUserError, "no command given; expected one of lookup, discover, check, server-lists")
	}
	command := rest[0]
	rest = rest[1:]

	cmdFlags := flag.NewFlagSet(command, flag.ContinueOnError)
	cmdFlags.SetOutput(stderr)
	registerCommandFlags(cmdFlags, cfg, command)
	if err := cmdFlags.Parse(rest); err != nil {
		return exitUserError
	}
	// Command flags may also follow a target ("lookup example.com -t A"), so parsing resumes after
	// each positional argument.
	var targets []string
	for cmdFlags.NArg() > 0 {
		targets = append(targets, cmdFlags.Arg(0))
		if err := cmdFlags.Parse(cmdFlags.Args()[1:]); err != nil {
			return exitUserError
		}
	}

	if cfg.listPredefined {
		for _, d := range nameserver.Predefined(nil) {
			fmt.Fprintln(stdout, d.String())
		}
		return exitSuccess
	}

	switch command {
	case "lookup":
		return runLookup(targets)
	case "discover":
		return runDiscover(targets)
	case "check":
		return runCheck(targets)
	case "server-lists":
		return runServerLists(targets)
	default:
		return fatal(exitUserError, "unknown command", command)
	}
}

// buildPool applies cfg's pool-related flags to nameserver.Build. The resolv.conf derived
// ndots/search-domain defaults are applied by plannerConfig, not here.
func buildPool() (*nameserver.Pool, error) {
	var filter []model.Transport
	for _, p := range cfg.predefinedFilter.Args() {
		filter = append(filter, model.Transport(strings.ToLower(p)))
	}

	nsCfg := nameserver.Config{
		Nameservers:         cfg.nameservers.Args(),
		NameserversFromFile: cfg.nameserversFromFile,
		Predefined:          cfg.predefined,
		PredefinedFilter:    filter,
		NoSystemNameservers: cfg.noSystemNameservers,
		ResolvConfPath:      cfg.resolvConfPath,
		NoSystemLookups:     cfg.noSystemLookups,
		SystemNameservers:   cfg.systemNameservers.Args(),
		Limit:               cfg.limit,
	}
	return nameserver.Build(nsCfg)
}

// plannerConfig derives ndots/search-domain, optionally overriding from /etc/resolv.conf when
// --use-system-resolv-opt is set and the operator left --ndots/--search-domain unset.
func plannerConfig() planner.Config {
	pc := planner.Config{Ndots: cfg.ndots, SearchDomain: cfg.searchDomain, CIDRLimit: cfg.limit}
	if cfg.useSystemResolvOpt {
		path := cfg.resolvConfPath
		if len(path) == 0 {
			path = "/etc/resolv.conf"
		}
		if rc, err := resolvconf.Load(path); err == nil {
			if cfg.ndots == 0 {
				pc.Ndots = rc.Ndots
			}
			if len(cfg.searchDomain) == 0 && len(rc.Search) > 0 {
				pc.SearchDomain = rc.Search[0]
			}
		}
	}
	if pc.Ndots == 0 {
		pc.Ndots = 1
	}
	return pc
}

func newEngine() *engine.Engine {
	e := engine.New(singleresolver.New())
	e.Stats = &engine.Stats{}
	return e
}

func runLookup(targets []string) int {
	if len(targets) == 0 {
		return fatal(exitUserError, "lookup requires at least one target")
	}

	var requests []planner.Request
	for _, t := range targets {
		requests = append(requests, planner.Request{Target: t, Types: cfg.recordTypes.Args(), All: cfg.allTypes})
	}
	batch, err := planner.Plan(plannerConfig(), requests)
	if err != nil {
		return fatal(exitUserError, err)
	}

	pool, err := buildPool()
	if err != nil {
		return fatal(exitOperationalFailure, err)
	}
	if len(pool.Lookup()) == 0 {
		return fatal(exitOperationalFailure, "empty name server pool")
	}

	e := newEngine()
	lookups, err := e.Run(context.Background(), batch, pool.Lookup(), cfg.budgets(), nil)
	if err != nil {
		return fatal(exitOperationalFailure, err)
	}

	render(lookups)
	if cfg.debug {
		fmt.Fprintln(stderr, e.Stats.Report(false))
	}
	return exitSuccess
}

func runDiscover(targets []string) int {
	if len(targets) != 1 {
		return fatal(exitUserError, "discover requires exactly one apex domain")
	}

	pool, err := buildPool()
	if err != nil {
		return fatal(exitOperationalFailure, err)
	}
	if len(pool.Lookup()) == 0 {
		return fatal(exitOperationalFailure, "empty name server pool")
	}

	dCfg := discover.DefaultConfig()
	if cfg.rndNamesNumber > 0 {
		dCfg.RndNamesNumber = cfg.rndNamesNumber
	}
	if cfg.rndNamesLen > 0 {
		dCfg.RndNamesLen = cfg.rndNamesLen
	}
	dCfg.SubdomainsOnly = cfg.subdomainsOnly
	dCfg.ShowPartialResults = cfg.showPartialResults
	if len(cfg.wordlistFromFile) > 0 {
		data, err := os.ReadFile(cfg.wordlistFromFile)
		if err != nil {
			return fatal(exitOperationalFailure, err)
		}
		dCfg.Words = strings.Fields(string(data))
	}

	e := newEngine()
	result, err := discover.Run(context.Background(), e, pool.Lookup(), cfg.budgets(), targets[0], dCfg, nil)
	if err != nil {
		return fatal(exitOperationalFailure, err)
	}

	if result.Wildcarded {
		fmt.Fprintln(stdout, "Zone appears wildcarded:", result.WildcardRecords)
	}
	for _, n := range result.Discovered {
		fmt.Fprintln(stdout, n)
	}
	if !cfg.quiet {
		for _, n := range result.Suspicious {
			fmt.Fprintln(stdout, n, "(suspicious: matches wildcard target)")
		}
	}
	return exitSuccess
}

func runCheck(targets []string) int {
	if len(targets) != 1 {
		return fatal(exitUserError, "check requires exactly one apex domain")
	}

	pool, err := buildPool()
	if err != nil {
		return fatal(exitOperationalFailure, err)
	}
	if len(pool.Lookup()) == 0 {
		return fatal(exitOperationalFailure, "empty name server pool")
	}

	cCfg := check.Config{
		NoSOA: cfg.noSOA, NoCNAME: cfg.noCNAMEs, NoSPF: cfg.noSPF,
		ShowIntermediateLookups: cfg.showIntermediateLookups, ShowPartialResults: cfg.showPartialResults,
	}

	e := newEngine()
	result, err := check.Run(context.Background(), e, pool.Lookup(), cfg.budgets(), targets[0], cCfg, nil)
	if err != nil {
		return fatal(exitOperationalFailure, err)
	}

	issues := renderCheck(result)
	if issues && cfg.strict {
		return exitLintIssues
	}
	return exitSuccess
}

func runServerLists(args []string) int {
	if len(args) != 1 {
		return fatal(exitUserError, "server-lists requires exactly one source spec, e.g. public-dns:us or opennic:")
	}

	src, err := serverlists.ParseSource(args[0])
	if err != nil {
		return fatal(exitUserError, err)
	}

	descriptors, err := serverlists.Fetch(context.Background(), http.DefaultClient, src)
	if err != nil {
		return fatal(exitOperationalFailure, err)
	}

	out := stdout
	if len(cfg.serverListsOutputFile) > 0 {
		f, err := os.Create(cfg.serverListsOutputFile)
		if err != nil {
			return fatal(exitOperationalFailure, err)
		}
		defer f.Close()
		out = f
	}
	for _, d := range descriptors {
		fmt.Fprintln(out, d.String())
	}
	return exitSuccess
}
