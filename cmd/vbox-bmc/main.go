package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tjst-t/vbox-bmc/internal/bmc"
	"github.com/tjst-t/vbox-bmc/internal/config"
	"github.com/tjst-t/vbox-bmc/internal/console"
	"github.com/tjst-t/vbox-bmc/internal/ipmi"
	"github.com/tjst-t/vbox-bmc/internal/logging"
	"github.com/tjst-t/vbox-bmc/internal/machine"
	"github.com/tjst-t/vbox-bmc/internal/metrics"
	"github.com/tjst-t/vbox-bmc/internal/redfish"
	"github.com/tjst-t/vbox-bmc/internal/vbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vbox-bmc: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vbox-bmc: %v\n", err)
		os.Exit(1)
	}

	logger.Info("vbox-bmc starting", "vm", cfg.VMName)

	binary, runAs, err := cfg.ResolveVBoxManage()
	if err != nil {
		logger.Error("cannot resolve VBoxManage", "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	runner := met.WrapRunner(vbox.NewRunner(binary, runAs, nil, logger))
	ctrl := vbox.NewController(runner, cfg.VMName, vbox.Options{
		CycleDelay: cfg.PowerCycleDelay,
		Timeout:    cfg.VBoxManageTimeout,
	}, logger)

	m := machine.New(ctrl, logger)
	adapter := machine.NewBMCAdapter(m, met, logger)
	state := bmc.NewState(cfg.IPMIUser, cfg.IPMIPass)

	ipmiServer := ipmi.NewServer(adapter, state, cfg.IPMIUser, cfg.IPMIPass, logger)
	go func() {
		addr := ":" + cfg.IPMIPort
		if err := ipmiServer.ListenAndServe(addr); err != nil {
			logger.Error("IPMI server error", "error", err)
			os.Exit(1)
		}
	}()

	redfishServer := redfish.NewServer(m, cfg.IPMIUser, cfg.IPMIPass, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	if cfg.ConsoleAddr != "" {
		mux.Handle("/console", console.NewProxy(cfg.ConsoleAddr, logger))
	}
	mux.Handle("/", redfishServer)

	httpServer := &http.Server{
		Addr:    ":" + cfg.RedfishPort,
		Handler: mux,
	}

	go func() {
		logger.Info("Redfish server listening", "addr", httpServer.Addr)
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			logger.Info("no TLS cert/key configured, generating self-signed certificate")
			cert, certErr := generateSelfSignedCert()
			if certErr != nil {
				logger.Error("self-signed certificate generation failed", "error", certErr)
				os.Exit(1)
			}
			httpServer.TLSConfig = &tls.Config{
				MinVersion:   tls.VersionTLS12,
				Certificates: []tls.Certificate{cert},
			}
			err = httpServer.ListenAndServeTLS("", "")
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("Redfish server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
	ipmiServer.Close()
	httpServer.Close()
}
