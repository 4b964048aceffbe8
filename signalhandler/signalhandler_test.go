package signalhandler

import (
	"strings"
	"testing"
)

func TestRunCleanupsOrder(t *testing.T) {
	var order []string
	AddCleanup(func() { order = append(order, "logger") })
	AddCleanup(func() { order = append(order, "database") })

	RunCleanups()
	if got := strings.Join(order, ","); got != "database,logger" {
		t.Errorf("cleanup order = %s, want database,logger", got)
	}

	order = nil
	RunCleanups()
	if len(order) != 0 {
		t.Errorf("cleanups ran twice: %v", order)
	}
}

func TestAddCleanupRemove(t *testing.T) {
	var ran []string
	remove := AddCleanup(func() { ran = append(ran, "closed db") })
	AddCleanup(func() { ran = append(ran, "logger") })

	remove()
	remove()
	RunCleanups()

	if len(ran) != 1 || ran[0] != "logger" {
		t.Errorf("ran = %v, want only the logger cleanup", ran)
	}
}
