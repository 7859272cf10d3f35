package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"nftgen/shutdown"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

const serviceStopTimeout = 30 * time.Second

// program adapts the service to service.Interface. Start returns at once;
// the service runs in a goroutine until Stop triggers shutdown.
type program struct {
	serve func(mgr *shutdown.Manager) error

	mgr  *shutdown.Manager
	exit chan struct{}
	err  error
}

// Start creates the shutdown manager and serves in the background.
func (p *program) Start(s service.Service) error {
	p.mgr = shutdown.NewManager(nil)
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	defer close(p.exit)
	p.err = p.serve(p.mgr)
}

// Stop triggers shutdown and waits up to serviceStopTimeout for serve to
// return.
func (p *program) Stop(s service.Service) error {
	p.mgr.Trigger()

	select {
	case <-p.exit:
		return p.err
	case <-time.After(serviceStopTimeout):
		return fmt.Errorf("timeout waiting for service to stop (%d operations active)", p.mgr.ActiveOperations())
	}
}

func serviceConfig() *service.Config {
	cfg := &service.Config{
		Name:        "nftgen",
		DisplayName: "NFT Generator",
		Description: "Image stylization and img2img generation service",
		Option: service.KeyValue{
			"StartType": "automatic",
			"Restart":   "on-failure",
		},
	}
	// run from the executable's directory so .env and relative paths resolve
	if exe, err := os.Executable(); err == nil {
		cfg.WorkingDirectory = filepath.Dir(exe)
	}
	return cfg
}

func newService() (service.Service, *program, error) {
	prg := &program{serve: func(mgr *shutdown.Manager) error {
		return serve(false, true, mgr)
	}}
	s, err := service.New(prg, serviceConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, prg, nil
}

// runAsService runs under the OS service manager when the process was
// started by it. It reports false when running interactively.
func runAsService() (bool, error) {
	if service.Interactive() {
		return false, nil
	}
	s, _, err := newService()
	if err != nil {
		return true, err
	}
	if err := s.Run(); err != nil {
		return true, fmt.Errorf("service run failed: %w", err)
	}
	return true, nil
}

var serviceActions = []string{"install", "uninstall", "start", "stop", "restart", "status"}

var serviceCmd = &cobra.Command{
	Use:       "service <install|uninstall|start|stop|restart|status>",
	Short:     "Manage nftgen as an OS service",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: serviceActions,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newService()
		if err != nil {
			return err
		}
		return controlService(cmd.OutOrStdout(), s, args[0])
	},
}

// serviceController is the subset of service.Service the commands use.
type serviceController interface {
	Status() (service.Status, error)
}

func controlService(w io.Writer, s service.Service, action string) error {
	if action == "status" {
		return printServiceStatus(w, s)
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("failed to %s service: %w", action, err)
	}
	fmt.Fprintf(w, "Service %s: ok\n", action)
	return nil
}

func printServiceStatus(w io.Writer, s serviceController) error {
	status, err := s.Status()
	if err != nil {
		return fmt.Errorf("failed to get service status: %w", err)
	}
	fmt.Fprintln(w, statusText(status))
	return nil
}

func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "Service is running"
	case service.StatusStopped:
		return "Service is stopped"
	default:
		return "Service status unknown"
	}
}
