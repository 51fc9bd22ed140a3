// Package buildinfo contains build-time metadata injected with -ldflags
//
//	go build -ldflags "-X github.com/tphakala/dogbreed-go/internal/buildinfo.Version=v1.2.0"
package buildinfo

// Set at link time.
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// Context contains build-time metadata that is not user-configurable
type Context struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
}

// Current returns the metadata of the running binary
func Current() Context {
	return Context{
		Version:   Version,
		BuildDate: BuildDate,
	}
}
