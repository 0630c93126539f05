// Package platform supplies the application and host strings that are
// attached to every event's metadata.
package platform

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Provider returns platform strings on demand. Any method may return "".
type Provider interface {
	AppVersion() string
	OSVersion() string
	DeviceType() string
}

// Static is a Provider with fixed values.
type Static struct {
	App    string
	OS     string
	Device string
}

func (s Static) AppVersion() string { return s.App }
func (s Static) OSVersion() string  { return s.OS }
func (s Static) DeviceType() string { return s.Device }

// Runtime reads values from the build info and the host.
type Runtime struct{}

// AppVersion returns the main module version, or "devel" for local builds.
func (Runtime) AppVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel"
	}
	return info.Main.Version
}

// OSVersion returns "<goos> <release>" where the release is available.
func (Runtime) OSVersion() string {
	if rel := osRelease(); rel != "" {
		return runtime.GOOS + " " + rel
	}
	return runtime.GOOS
}

// DeviceType returns the machine architecture.
func (Runtime) DeviceType() string {
	if m := machine(); m != "" {
		return m
	}
	return runtime.GOARCH
}

// Override layers non-empty Static values over a base provider.
func Override(base Provider, s Static) Provider {
	if base == nil {
		base = Runtime{}
	}
	return overlay{base: base, top: s}
}

type overlay struct {
	base Provider
	top  Static
}

func (o overlay) AppVersion() string { return pick(o.top.App, o.base.AppVersion) }
func (o overlay) OSVersion() string  { return pick(o.top.OS, o.base.OSVersion) }
func (o overlay) DeviceType() string { return pick(o.top.Device, o.base.DeviceType) }

func pick(v string, fallback func() string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback()
}
