// Package kiwiver checks a KiwiSDR server's advertised version against the
// oldest version known to speak this client's sub-protocol.
package kiwiver

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"

	"github.com/marisusis/sdr-scraper/internal/kiwi"
)

// MinSupportedVersion is the lowest KiwiSDR server version known to speak
// the sub-protocol this client implements.
const MinSupportedVersion = "1.550"

// ServerVersion re-exports the wire-codec's parsed /VER body; kiwiver owns
// the comparison logic, kiwi owns the parsing, since both the session and
// this package need the same struct shape.
type ServerVersion = kiwi.ServerVersion

// Parse parses a GET /VER response body.
func Parse(body []byte) (ServerVersion, error) {
	return kiwi.ParseServerVersion(string(body))
}

// Check compares v against MinSupportedVersion and returns human-readable
// warnings. An empty slice means the server version is acceptable. Parse
// failures in the version strings themselves are folded into a warning
// rather than returned as an error — this check is advisory only.
func Check(v ServerVersion) []string {
	reported := fmt.Sprintf("%d.%d", v.Maj, v.Min)

	reportedVer, err := goversion.NewVersion(reported)
	if err != nil {
		return []string{fmt.Sprintf("could not parse server version %q: %v", reported, err)}
	}

	minVer, err := goversion.NewVersion(MinSupportedVersion)
	if err != nil {
		// MinSupportedVersion is a compile-time constant; this can't happen.
		return nil
	}

	if reportedVer.LessThan(minVer) {
		return []string{fmt.Sprintf("server version %s is older than the minimum supported version %s", reported, MinSupportedVersion)}
	}
	return nil
}
