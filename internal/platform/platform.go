// Package platform maps the host onto precompiled artifact tags.
package platform

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"

	"pyforge/internal/settings"
)

// Tags reports the OS and architecture tags that precompiled interpreter
// filenames carry for this host. Non-empty settings overrides win over
// detection.
func Tags(ctx context.Context, st settings.Settings) (osTag, archTag string) {
	osTag = st.Python.PrecompiledOS
	if osTag == "" {
		osTag = detectOS(ctx)
	}
	archTag = st.Python.PrecompiledArch
	if archTag == "" {
		archTag = detectArch()
	}
	return osTag, archTag
}

func detectOS(ctx context.Context) string {
	switch runtime.GOOS {
	case "darwin":
		return "apple-darwin"
	case "windows":
		return "pc-windows-msvc-shared"
	default:
		if muslLibc(ctx) {
			return "unknown-linux-musl"
		}
		return "unknown-linux-gnu"
	}
}

// muslLibc reports whether the host links against musl. Alpine is the only
// distribution the artifact feed distinguishes, so detection failures fall
// back to glibc.
func muslLibc(ctx context.Context) bool {
	if runtime.GOOS != "linux" {
		return false
	}
	platform, _, _, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		return false
	}
	return platform == "alpine"
}

func detectArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64_v3"
	case "arm64":
		return "aarch64"
	default:
		return runtime.GOARCH
	}
}
