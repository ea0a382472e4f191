//go:build !windows

package service

// readServiceRegistry is a no-op off Windows.
func readServiceRegistry(string) map[string]string { return nil }
