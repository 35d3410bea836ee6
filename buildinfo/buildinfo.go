// Package buildinfo holds version information injected at link time.
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("%s-%s-%s", Version, Date, Commit)
}
