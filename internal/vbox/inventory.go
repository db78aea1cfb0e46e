package vbox

import (
	"bufio"
	"bytes"
	"regexp"
)

// RunState is the run state of a VM as reported by VBoxManage.
type RunState uint8

const (
	StateOff RunState = 0
	StateOn  RunState = 1
)

func (s RunState) String() string {
	if s == StateOn {
		return "On"
	}
	return "Off"
}

// Inventory is a snapshot of VM names to run states. It is rebuilt fresh
// on every query; VirtualBox is the sole source of truth and VMs change
// state out-of-band.
type Inventory map[string]RunState

// listingLine matches one entry of `VBoxManage list vms` output:
//
//	"vm name" {9a37ab16-8f4b-4d57-b2c5-d7b2a0a4f9b1}
var listingLine = regexp.MustCompile(`^"(.*)" \{(.*)\}$`)

// ParseInventory builds an Inventory from the raw output of
// `VBoxManage list vms` and `VBoxManage list runningvms`. Every name in
// the full listing starts as Off; names in the running listing override to
// On (a running VM appears in both). Lines that don't match the listing
// pattern are skipped.
func ParseInventory(allVMs, runningVMs []byte) Inventory {
	inv := make(Inventory)
	eachListingLine(allVMs, func(name string) {
		inv[name] = StateOff
	})
	eachListingLine(runningVMs, func(name string) {
		inv[name] = StateOn
	})
	return inv
}

func eachListingLine(out []byte, fn func(name string)) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		m := listingLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		fn(m[1])
	}
}
