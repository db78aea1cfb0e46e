package vbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultCycleDelay is how long a power cycle waits between the hard
	// power-off and the restart, giving VBoxSVC time to release the VM
	// session lock.
	DefaultCycleDelay = 1 * time.Second

	// DefaultTimeout bounds a single VBoxManage invocation. A hung tool
	// must not hang the IPMI handler forever.
	DefaultTimeout = 30 * time.Second
)

// bootDeviceArg maps boot override targets to `modifyvm --boot1` values.
// Targets VirtualBox has no device for are applied as no-ops.
var bootDeviceArg = map[string]string{
	"Pxe": "net",
	"Hdd": "disk",
	"Cd":  "dvd",
}

// Options tunes Controller timing.
type Options struct {
	CycleDelay time.Duration
	Timeout    time.Duration
}

// Controller translates chassis power verbs for one VM into VBoxManage
// invocations and classifies the outcomes. It holds no hypervisor state:
// every operation is an independent child-process invocation.
type Controller struct {
	runner     Runner
	vmName     string
	cycleDelay time.Duration
	timeout    time.Duration
	log        *slog.Logger
}

// NewController creates a Controller for the named VM.
func NewController(runner Runner, vmName string, opts Options, log *slog.Logger) *Controller {
	if opts.CycleDelay <= 0 {
		opts.CycleDelay = DefaultCycleDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Controller{
		runner:     runner,
		vmName:     vmName,
		cycleDelay: opts.CycleDelay,
		timeout:    opts.Timeout,
		log:        log,
	}
}

// VMName returns the VM this controller manages.
func (c *Controller) VMName() string {
	return c.vmName
}

// run invokes VBoxManage under the configured timeout and folds every
// failure mode — launch error, timeout, nonzero exit — into a
// RetryableError. This is the retry-classification boundary: nothing below
// the adapter sees a raw exec error.
func (c *Controller) run(args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.runner.Run(ctx, args...)
	if err != nil {
		return res, &RetryableError{Op: fmt.Sprintf("VBoxManage %s", args[0]), Err: err}
	}
	if res.ExitStatus != 0 {
		c.log.Warn("VBoxManage exited nonzero",
			"args", args, "status", res.ExitStatus, "stderr", string(res.Stderr))
		return res, &RetryableError{
			Op:  fmt.Sprintf("VBoxManage %s", args[0]),
			Err: fmt.Errorf("exit status %d: %s", res.ExitStatus, res.Stderr),
		}
	}
	return res, nil
}

// Inventory runs the two listing commands and parses a fresh snapshot.
func (c *Controller) Inventory() (Inventory, error) {
	all, err := c.run("list", "vms")
	if err != nil {
		return nil, err
	}
	running, err := c.run("list", "runningvms")
	if err != nil {
		return nil, err
	}
	return ParseInventory(all.Stdout, running.Stdout), nil
}

// Resolve looks up this controller's VM in a fresh inventory snapshot.
// A name absent from both listings yields NotFoundError, which is a
// different failure mode from StateOff.
func (c *Controller) Resolve() (RunState, error) {
	inv, err := c.Inventory()
	if err != nil {
		return StateOff, err
	}
	state, ok := inv[c.vmName]
	if !ok {
		return StateOff, &NotFoundError{Name: c.vmName}
	}
	return state, nil
}

// Start powers the VM on headless. bootTarget, when VirtualBox has a
// device for it, is applied with modifyvm --boot1 before the start; a
// failure to set the boot device aborts the start.
func (c *Controller) Start(bootTarget string) error {
	if dev, ok := bootDeviceArg[bootTarget]; ok {
		if _, err := c.run("modifyvm", c.vmName, "--boot1", dev); err != nil {
			return err
		}
	}
	c.log.Debug("power on", "vm", c.vmName)
	_, err := c.run("startvm", c.vmName, "--type", "headless")
	return err
}

// PowerOff force-stops the VM, the virtual equivalent of pulling the plug.
func (c *Controller) PowerOff() error {
	c.log.Debug("power off", "vm", c.vmName)
	_, err := c.run("controlvm", c.vmName, "poweroff")
	return err
}

// Shutdown presses the virtual ACPI power button. Success only means the
// signal was delivered; whether the guest OS honors it is not observable
// here.
func (c *Controller) Shutdown() error {
	c.log.Debug("soft power off", "vm", c.vmName)
	_, err := c.run("controlvm", c.vmName, "acpipowerbutton")
	return err
}

// Reset hard-resets the VM without a guest-visible shutdown.
func (c *Controller) Reset() error {
	c.log.Debug("reset", "vm", c.vmName)
	_, err := c.run("controlvm", c.vmName, "reset")
	return err
}

// PowerCycle composes PowerOff, a delay for the hypervisor to release the
// VM session, then Start. A failed power-off aborts the cycle; the VM is
// left off rather than blindly restarted.
func (c *Controller) PowerCycle(bootTarget string) error {
	if err := c.PowerOff(); err != nil {
		return err
	}
	time.Sleep(c.cycleDelay)
	return c.Start(bootTarget)
}

// AttachMedium inserts a DVD image into the VM's first optical drive.
func (c *Controller) AttachMedium(image string) error {
	_, err := c.run("storageattach", c.vmName,
		"--storagectl", "IDE", "--port", "1", "--device", "0",
		"--type", "dvddrive", "--medium", image)
	return err
}

// DetachMedium ejects whatever medium is in the first optical drive.
func (c *Controller) DetachMedium() error {
	_, err := c.run("storageattach", c.vmName,
		"--storagectl", "IDE", "--port", "1", "--device", "0",
		"--type", "dvddrive", "--medium", "emptydrive")
	return err
}
