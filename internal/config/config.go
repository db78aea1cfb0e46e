package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tjst-t/vbox-bmc/internal/logging"
)

// windowsVBoxManage is where the VirtualBox installer puts the CLI on
// Windows; Linux and Darwin find VBoxManage on PATH.
const windowsVBoxManage = `C:\Program Files\Oracle\VirtualBox\VBoxManage.exe`

// Config holds the application configuration.
type Config struct {
	VMName string `yaml:"vm_name"`

	IPMIUser string `yaml:"ipmi_user"`
	IPMIPass string `yaml:"ipmi_pass"`
	IPMIPort string `yaml:"ipmi_port"`

	RedfishPort string `yaml:"redfish_port"`
	TLSCert     string `yaml:"tls_cert"`
	TLSKey      string `yaml:"tls_key"`

	// VBoxManagePath overrides OS-based resolution of the VBoxManage binary.
	VBoxManagePath string `yaml:"vboxmanage_path"`
	// RunAsUser, when set, wraps VBoxManage invocations so they run as the
	// VirtualBox owner account (runuser on Linux, su elsewhere).
	RunAsUser string `yaml:"run_as_user"`

	PowerCycleDelay   time.Duration `yaml:"power_cycle_delay"`
	VBoxManageTimeout time.Duration `yaml:"vboxmanage_timeout"`

	// ConsoleAddr is the TCP address of the VM's VNC display for the
	// WebSocket console proxy. Empty disables the proxy.
	ConsoleAddr string `yaml:"console_addr"`

	Logging logging.Config `yaml:"logging"`
}

// Load reads configuration from the optional YAML file named by
// CONFIG_FILE, then overlays environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.VMName = getEnv("VM_NAME", cfg.VMName)
	cfg.IPMIUser = getEnv("IPMI_USER", defaultStr(cfg.IPMIUser, "admin"))
	cfg.IPMIPass = getEnv("IPMI_PASS", defaultStr(cfg.IPMIPass, "password"))
	cfg.IPMIPort = getEnv("IPMI_PORT", defaultStr(cfg.IPMIPort, "623"))
	cfg.RedfishPort = getEnv("REDFISH_PORT", defaultStr(cfg.RedfishPort, "443"))
	cfg.TLSCert = getEnv("TLS_CERT", cfg.TLSCert)
	cfg.TLSKey = getEnv("TLS_KEY", cfg.TLSKey)
	cfg.VBoxManagePath = getEnv("VBOXMANAGE_PATH", cfg.VBoxManagePath)
	cfg.RunAsUser = getEnv("RUN_AS_USER", cfg.RunAsUser)
	cfg.ConsoleAddr = getEnv("CONSOLE_ADDR", cfg.ConsoleAddr)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnv("LOG_OUTPUT", cfg.Logging.Output)

	var err error
	if cfg.PowerCycleDelay, err = getDurationEnv("POWER_CYCLE_DELAY", cfg.PowerCycleDelay); err != nil {
		return nil, err
	}
	if cfg.VBoxManageTimeout, err = getDurationEnv("VBOXMANAGE_TIMEOUT", cfg.VBoxManageTimeout); err != nil {
		return nil, err
	}

	if cfg.VMName == "" {
		return nil, fmt.Errorf("VM_NAME is required")
	}

	return cfg, nil
}

// ResolveVBoxManage determines the VBoxManage binary path and the optional
// run-as wrapper for the host operating system. An OS VirtualBox does not
// run on is the only fatal construction-time condition.
func (c *Config) ResolveVBoxManage() (binary string, runAs []string, err error) {
	binary = c.VBoxManagePath
	if binary == "" {
		switch runtime.GOOS {
		case "linux", "darwin":
			binary = "VBoxManage"
		case "windows":
			binary = windowsVBoxManage
		default:
			return "", nil, fmt.Errorf("unsupported host OS %q", runtime.GOOS)
		}
	}

	if c.RunAsUser != "" {
		su := "su"
		if runtime.GOOS == "linux" {
			su = "runuser"
		}
		runAs = []string{su, c.RunAsUser}
	}

	return binary, runAs, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func defaultStr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
