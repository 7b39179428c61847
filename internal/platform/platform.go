// Package platform resolves the host OS into one of the supported variants.
package platform

import (
	"fmt"
	"runtime"
)

// Kind is the closed set of platforms the daemon runs on.
type Kind int

const (
	Linux Kind = iota + 1
	MacOS
	Windows
)

// ErrUnsupported is returned by Resolve for any other GOOS.
type ErrUnsupported struct {
	GOOS string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported platform %s", e.GOOS)
}

// Resolve maps a GOOS value to a Kind.
func Resolve(goos string) (Kind, error) {
	switch goos {
	case "linux":
		return Linux, nil
	case "darwin":
		return MacOS, nil
	case "windows":
		return Windows, nil
	default:
		return 0, &ErrUnsupported{GOOS: goos}
	}
}

// Current resolves the platform this binary was built for.
func Current() (Kind, error) { return Resolve(runtime.GOOS) }

func (k Kind) String() string {
	switch k {
	case Linux:
		return "linux"
	case MacOS:
		return "macos"
	case Windows:
		return "windows"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// SupportsLocation reports whether the platform has a location service the
// daemon can read. Only macOS does.
func (k Kind) SupportsLocation() bool { return k == MacOS }
