// Package version holds build metadata.
package version

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/ndewijer/portfolio-service/internal/version.Version=1.2.3"
var Version = "dev"
