package main

import (
	"time"

	"github.com/lukaspustina/mhost/internal/flagutil"
	"github.com/lukaspustina/mhost/internal/model"
)

// config holds every flag mhost accepts, global and per-command. It is rebuilt from scratch on
// every mainExecute call so tests can invoke it repeatedly.
type config struct {
	// Global flags
	useSystemResolvOpt    bool
	noSystemNameservers   bool
	noSystemLookups       bool
	resolvConfPath        string
	ndots                 int
	searchDomain          string
	systemNameservers     flagutil.StringValue
	nameservers           flagutil.StringValue
	predefined            bool
	predefinedFilter      flagutil.StringValue
	listPredefined        bool
	nameserversFromFile   string
	limit                 int
	maxConcurrentServers  int
	maxConcurrentRequests int
	retries               int
	timeoutSeconds        int
	resolversMode         string
	waitMultipleResponses bool
	noAbortOnError        bool
	noAbortOnTimeout      bool
	noAborts              bool
	output                string
	outputOptions         flagutil.StringValue
	showErrors            bool
	quiet                 bool
	noColor               bool
	ascii                 bool
	verbose               bool
	debug                 bool

	constrainUser  string
	constrainGroup string
	chrootDir      string

	help    bool
	version bool

	// lookup-specific
	recordTypes flagutil.StringValue
	allTypes    bool

	// discover-specific
	rndNamesNumber     int
	rndNamesLen        int
	wordlistFromFile   string
	subdomainsOnly     bool
	showPartialResults bool

	// check-specific
	noSOA                   bool
	noCNAMEs                bool
	noSPF                   bool
	showIntermediateLookups bool
	strict                  bool

	// server-lists-specific
	serverListsOutputFile string
}

func (c *config) budgets() model.Budgets {
	b := model.DefaultBudgets()
	if c.maxConcurrentServers > 0 {
		b.MaxConcurrentServers = c.maxConcurrentServers
	}
	if c.maxConcurrentRequests > 0 {
		b.MaxConcurrentPerServer = c.maxConcurrentRequests
	}
	b.Retries = c.retries
	b.Timeout = time.Duration(c.timeoutSeconds) * time.Second
	b.WaitMultipleResponses = c.waitMultipleResponses
	b.AbortOnError = !c.noAbortOnError && !c.noAborts
	b.AbortOnTimeout = !c.noAbortOnTimeout && !c.noAborts
	if c.resolversMode == "uni" {
		b.Mode = model.ModeUni
	} else {
		b.Mode = model.ModeMulti
	}
	return b
}
