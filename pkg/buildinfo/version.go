// Package buildinfo carries the ecsgraph build stamp.
//
// The variables are set with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/ecsgraph/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/ecsgraph/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/ecsgraph/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/ecsgraph
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build stamp as reported by the CLI and the HTTP health check.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"built"`
}

// Current returns the stamp compiled into this binary.
func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// Dev reports whether the binary was built without a version stamp.
func (i Info) Dev() bool { return i.Version == "dev" }

// Template returns the cobra version template.
func Template() string {
	i := Current()
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", i.Version, i.Commit, i.Date)
}
