// ipmi-test-server starts a minimal IPMI server for manual/integration testing
// without requiring a VirtualBox installation.
//
// Usage:
//
//	go run ./cmd/ipmi-test-server [-port 6234]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/tjst-t/vbox-bmc/internal/bmc"
	"github.com/tjst-t/vbox-bmc/internal/ipmi"
)

// stubBMC simulates a powered-on VM for testing purposes.
type stubBMC struct {
	boot ipmi.BootOverride
}

func (s *stubBMC) GetPowerState() (uint8, ipmi.CompletionCode) {
	return ipmi.PowerStateOn, ipmi.CompletionCodeOK
}

func (s *stubBMC) PowerOn() ipmi.CompletionCode       { return ipmi.CompletionCodeOK }
func (s *stubBMC) PowerOff() ipmi.CompletionCode      { return ipmi.CompletionCodeOK }
func (s *stubBMC) PowerCycle() ipmi.CompletionCode    { return ipmi.CompletionCodeOK }
func (s *stubBMC) PowerReset() ipmi.CompletionCode    { return ipmi.CompletionCodeOK }
func (s *stubBMC) PowerShutdown() ipmi.CompletionCode { return ipmi.CompletionCodeOK }

func (s *stubBMC) GetBootOverride() ipmi.BootOverride {
	return s.boot
}

func (s *stubBMC) SetBootOverride(override ipmi.BootOverride) ipmi.CompletionCode {
	s.boot = override
	return ipmi.CompletionCodeOK
}

func main() {
	port := flag.Int("port", 6234, "UDP port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	state := bmc.NewState("admin", "password")
	server := ipmi.NewServer(&stubBMC{}, state, "admin", "password", logger)

	addr := fmt.Sprintf(":%d", *port)
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		logger.Error("listen failed", "addr", addr, "error", err)
		os.Exit(1)
	}
	logger.Info("IPMI test server listening", "addr", addr, "user", "admin", "pass", "password")
	if err := server.Serve(conn); err != nil {
		logger.Error("serve failed", "error", err)
		os.Exit(1)
	}
}
