// Package privilege reports whether the current process runs with
// administrative rights. The answer is advisory: commands still attempt
// their work and surface the OS error, this check only lets the CLI
// warn up front.
package privilege

// Elevated reports whether the process has administrative rights:
// effective UID 0 on Unix-like systems, an elevated token on Windows.
func Elevated() bool {
	return elevated()
}
