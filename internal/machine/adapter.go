package machine

import (
	"log/slog"

	"github.com/tjst-t/vbox-bmc/internal/ipmi"
	"github.com/tjst-t/vbox-bmc/internal/metrics"
	"github.com/tjst-t/vbox-bmc/internal/vbox"
)

// BMCAdapter implements ipmi.BMCInterface over a Machine. It is the
// error boundary toward the IPMI engine: every outcome becomes a
// completion code, nothing propagates as a Go error.
//
// Code policy: 0xC0 (node busy, retry) for every transient failure —
// launch errors, timeouts, nonzero exits from a busy or locked VM; 0xD5
// (command not supported in present state) only when the VM is missing
// from the hypervisor inventory, where a retry cannot succeed without
// operator action.
type BMCAdapter struct {
	machine *Machine
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewBMCAdapter creates the adapter the IPMI engine calls into.
func NewBMCAdapter(m *Machine, met *metrics.Metrics, log *slog.Logger) *BMCAdapter {
	return &BMCAdapter{machine: m, metrics: met, log: log}
}

// GetPowerState resolves the VM's run state from a fresh inventory
// snapshot. An unknown VM reports 0xD5, never numeric off.
func (a *BMCAdapter) GetPowerState() (uint8, ipmi.CompletionCode) {
	state, err := a.machine.GetPowerState()
	if err != nil {
		return ipmi.PowerStateOff, a.classify("get_power_state", err)
	}

	raw := ipmi.PowerStateOff
	if state == PowerOn {
		raw = ipmi.PowerStateOn
	}
	a.metrics.ObserveChassisOp("get_power_state", uint8(ipmi.CompletionCodeOK))
	return raw, ipmi.CompletionCodeOK
}

func (a *BMCAdapter) PowerOn() ipmi.CompletionCode {
	return a.classify("power_on", a.machine.PowerOn())
}

func (a *BMCAdapter) PowerOff() ipmi.CompletionCode {
	return a.classify("power_off", a.machine.PowerOff())
}

func (a *BMCAdapter) PowerCycle() ipmi.CompletionCode {
	return a.classify("power_cycle", a.machine.PowerCycle())
}

func (a *BMCAdapter) PowerReset() ipmi.CompletionCode {
	return a.classify("power_reset", a.machine.PowerReset())
}

func (a *BMCAdapter) PowerShutdown() ipmi.CompletionCode {
	return a.classify("power_shutdown", a.machine.PowerShutdown())
}

// GetBootOverride reports the machine's boot override in wire form.
func (a *BMCAdapter) GetBootOverride() ipmi.BootOverride {
	boot := a.machine.GetBootOverride()
	return ipmi.BootOverride{
		Enabled: boot.Enabled,
		Target:  boot.Target,
		Mode:    boot.Mode,
	}
}

// SetBootOverride applies a boot override received over IPMI.
func (a *BMCAdapter) SetBootOverride(override ipmi.BootOverride) ipmi.CompletionCode {
	err := a.machine.SetBootOverride(BootOverride{
		Enabled: override.Enabled,
		Target:  override.Target,
		Mode:    override.Mode,
	})
	if err != nil {
		a.log.Warn("rejected boot override", "error", err)
		return ipmi.CompletionCodeInvalidField
	}
	return ipmi.CompletionCodeOK
}

func (a *BMCAdapter) classify(op string, err error) ipmi.CompletionCode {
	var code ipmi.CompletionCode
	switch {
	case err == nil:
		code = ipmi.CompletionCodeOK
	case vbox.IsNotFound(err):
		a.log.Error("VM missing from inventory", "operation", op, "error", err)
		code = ipmi.CompletionCodeNotSupportedInState
	default:
		// Transient by policy: let the IPMI client retry.
		a.log.Warn("chassis operation failed", "operation", op, "error", err)
		code = ipmi.CompletionCodeNodeBusy
	}
	a.metrics.ObserveChassisOp(op, uint8(code))
	return code
}
