//go:build linux

package main

import (
	"os"
	"strings"
)

// Common device-tree model paths across Pi distros.
var deviceTreeModelPaths = []string{
	"/sys/firmware/devicetree/base/model",
	"/proc/device-tree/model",
}

// boardModel returns the device-tree model string, or "" when it cannot
// be read (not an SBC, container, etc.).
func boardModel() string {
	for _, p := range deviceTreeModelPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		model := strings.TrimSpace(strings.Trim(string(b), "\x00"))
		if model != "" {
			return model
		}
	}
	return ""
}
