//go:build windows

package service

import (
	"strconv"

	"golang.org/x/sys/windows/registry"
)

// readServiceRegistry reads extended metadata for a service from
// SYSTEM\CurrentControlSet\Services\<name>. Any failure, including
// insufficient privilege, degrades to nil.
func readServiceRegistry(name string) map[string]string {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE,
		`SYSTEM\CurrentControlSet\Services\`+name, registry.QUERY_VALUE)
	if err != nil {
		return nil
	}
	defer key.Close()

	extra := make(map[string]string)
	if v, _, err := key.GetStringValue("DisplayName"); err == nil {
		extra["DisplayName"] = v
	}
	if v, _, err := key.GetStringValue("Description"); err == nil {
		extra["Description"] = v
	}
	if v, _, err := key.GetStringValue("ImagePath"); err == nil {
		extra["ImagePath"] = v
	}
	if v, _, err := key.GetIntegerValue("Start"); err == nil {
		extra["StartType"] = startTypeName(v)
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

func startTypeName(v uint64) string {
	switch v {
	case 2:
		return "Automatic"
	case 3:
		return "Manual"
	case 4:
		return "Disabled"
	default:
		return "Unknown (" + strconv.FormatUint(v, 10) + ")"
	}
}
