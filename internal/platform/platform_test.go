package platform

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	p := Static{App: "1.2.3", OS: "linux 6.1", Device: "x86_64"}
	assert.Equal(t, "1.2.3", p.AppVersion())
	assert.Equal(t, "linux 6.1", p.OSVersion())
	assert.Equal(t, "x86_64", p.DeviceType())
}

func TestRuntimeNonEmpty(t *testing.T) {
	var p Runtime
	assert.NotEmpty(t, p.AppVersion())
	assert.True(t, strings.HasPrefix(p.OSVersion(), runtime.GOOS))
	assert.NotEmpty(t, p.DeviceType())
}

func TestOverride(t *testing.T) {
	base := Static{App: "base-app", OS: "base-os", Device: "base-dev"}
	p := Override(base, Static{App: "9.9.9", Device: "  "})

	assert.Equal(t, "9.9.9", p.AppVersion())
	assert.Equal(t, "base-os", p.OSVersion())
	assert.Equal(t, "base-dev", p.DeviceType())
}
