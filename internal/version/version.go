// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Presets with file watching, request metrics, internal layout overrides
// 0.2.0 - Bandwidth containment, legacy GET endpoint, headless calc command
// 0.1.0 - Initial release: form TUI, descriptor-driven validation, backend client

// UserAgent is sent with every backend request.
func UserAgent() string {
	return "ls-sensitivity/" + Version + " (Sensitivity Calculator Client)"
}
