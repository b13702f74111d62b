package tlsutil

import (
	"crypto/x509"
	"fmt"
	"os"
)

// loadroots builds the x509.CertPool used for server verification: the system roots when
// requested, plus any additional CA files. With neither, an empty pool is returned, which tells
// tls.Config not to fall back to fetching roots itself.
func loadroots(useSystemRoots bool, otherCAFiles []string) (*x509.CertPool, error) {
	var pool *x509.CertPool
	if useSystemRoots {
		var err error
		pool, err = x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("tlsutil:loadroots:systemRoots failed: %s", err.Error())
		}
	} else {
		pool = x509.NewCertPool()
	}

	for _, caFile := range otherCAFiles {
		asn1Data, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("tlsutil:loadroots:otherCA failed: %s", err.Error())
		}

		if !pool.AppendCertsFromPEM(asn1Data) {
			return nil, fmt.Errorf("tlsutil:loadroots:appendCerts failed to add %s", caFile)
		}
	}

	return pool, nil
}
