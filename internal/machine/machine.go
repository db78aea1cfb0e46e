package machine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tjst-t/vbox-bmc/internal/vbox"
)

// PowerState represents the power state of the VM
type PowerState string

const (
	PowerOn  PowerState = "On"
	PowerOff PowerState = "Off"
)

// BootOverride represents boot source override settings
type BootOverride struct {
	Enabled string // "Disabled", "Once", "Continuous"
	Target  string // "None", "Pxe", "Hdd", "Cd", "BiosSetup"
	Mode    string // "UEFI", "Legacy"
}

// Controller is what the machine layer needs from the VBoxManage bridge.
type Controller interface {
	Resolve() (vbox.RunState, error)
	Start(bootTarget string) error
	PowerOff() error
	Shutdown() error
	Reset() error
	PowerCycle(bootTarget string) error
	AttachMedium(image string) error
	DetachMedium() error
}

// Machine manages the state of one VirtualBox VM. The only state held
// here is the boot override; power state always comes fresh from the
// hypervisor.
type Machine struct {
	ctrl         Controller
	bootOverride BootOverride
	mu           sync.RWMutex
	log          *slog.Logger
}

// New creates a new Machine over the given controller
func New(ctrl Controller, log *slog.Logger) *Machine {
	return &Machine{
		ctrl: ctrl,
		log:  log,
		bootOverride: BootOverride{
			Enabled: "Disabled",
			Target:  "None",
			Mode:    "UEFI",
		},
	}
}

// GetPowerState returns the current power state of the VM. A VM missing
// from the hypervisor inventory propagates as vbox.NotFoundError, not as
// PowerOff.
func (m *Machine) GetPowerState() (PowerState, error) {
	state, err := m.ctrl.Resolve()
	if err != nil {
		return "", err
	}
	if state == vbox.StateOn {
		return PowerOn, nil
	}
	return PowerOff, nil
}

// PowerOn starts the VM headless, applying and consuming any pending boot
// override. It does not pre-check power state; an already-running VM is
// reported by the tool and classified by the caller.
func (m *Machine) PowerOn() error {
	return m.ctrl.Start(m.takeBootTarget())
}

// PowerOff force-stops the VM.
func (m *Machine) PowerOff() error {
	return m.ctrl.PowerOff()
}

// PowerCycle force-stops and restarts the VM.
func (m *Machine) PowerCycle() error {
	return m.ctrl.PowerCycle(m.takeBootTarget())
}

// PowerReset hard-resets the VM.
func (m *Machine) PowerReset() error {
	return m.ctrl.Reset()
}

// PowerShutdown delivers the ACPI power button signal to the guest.
func (m *Machine) PowerShutdown() error {
	return m.ctrl.Shutdown()
}

// Reset performs a Redfish reset action on the VM
func (m *Machine) Reset(resetType string) error {
	switch resetType {
	case "On":
		state, err := m.GetPowerState()
		if err != nil {
			return err
		}
		if state == PowerOn {
			return nil // already on, no-op
		}
		return m.PowerOn()
	case "ForceOff":
		return m.PowerOff()
	case "GracefulShutdown":
		return m.PowerShutdown()
	case "ForceRestart", "GracefulRestart":
		return m.PowerReset()
	case "PowerCycle":
		return m.PowerCycle()
	default:
		return fmt.Errorf("unsupported reset type: %s", resetType)
	}
}

// takeBootTarget returns the boot target to start with and consumes a
// "Once" override.
func (m *Machine) takeBootTarget() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bootOverride.Enabled == "Disabled" {
		return ""
	}
	target := m.bootOverride.Target
	if m.bootOverride.Enabled == "Once" {
		m.bootOverride.Enabled = "Disabled"
		m.bootOverride.Target = "None"
	}
	return target
}

// GetBootOverride returns the current boot override settings
func (m *Machine) GetBootOverride() BootOverride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bootOverride
}

// SetBootOverride sets the boot override settings
func (m *Machine) SetBootOverride(override BootOverride) error {
	validTargets := map[string]bool{
		"None": true, "Pxe": true, "Hdd": true, "Cd": true, "BiosSetup": true,
	}
	if !validTargets[override.Target] {
		return fmt.Errorf("invalid boot target: %s", override.Target)
	}

	validEnabled := map[string]bool{
		"Disabled": true, "Once": true, "Continuous": true,
	}
	if !validEnabled[override.Enabled] {
		return fmt.Errorf("invalid boot enabled: %s", override.Enabled)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootOverride = override
	return nil
}

// InsertMedia inserts virtual media into the VM's optical drive
func (m *Machine) InsertMedia(image string) error {
	return m.ctrl.AttachMedium(image)
}

// EjectMedia ejects virtual media from the VM's optical drive
func (m *Machine) EjectMedia() error {
	return m.ctrl.DetachMedium()
}
