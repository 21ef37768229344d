// Package doctor runs environment diagnostics before a trading session.
package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rewired-gh/botia5m/internal/storage"
)

// Status is the outcome of one check.
type Status string

const (
	OK   Status = "OK"
	Warn Status = "WARN"
	Fail Status = "FAIL"
)

// DefaultHost is resolved to verify outbound DNS.
const DefaultHost = "gamma-api.polymarket.com"

// AdapterDirs are optional sibling checkouts the bot can integrate with.
var AdapterDirs = []string{"4coinsbot-main", "mlmodelpoly-main", "collectmarkets2-main"}

// Check is a single diagnostic result.
type Check struct {
	Name   string
	Status Status
	Detail string
}

func (c Check) String() string {
	if c.Detail == "" {
		return fmt.Sprintf("%-4s %s", c.Status, c.Name)
	}
	return fmt.Sprintf("%-4s %s (%s)", c.Status, c.Name, c.Detail)
}

// Options select what the doctor inspects.
type Options struct {
	BaseDir      string
	Driver       string
	LedgerSource string
	Host         string
	Timeout      time.Duration
	// LookupHost defaults to the system resolver.
	LookupHost func(ctx context.Context, host string) ([]string, error)
}

// Run executes every check in a fixed order.
func Run(ctx context.Context, opts Options) []Check {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.LookupHost == nil {
		opts.LookupHost = net.DefaultResolver.LookupHost
	}

	checks := []Check{{Name: "go", Status: OK, Detail: runtime.Version()}}
	checks = append(checks, checkDNS(ctx, opts))
	checks = append(checks, checkLedger(opts))
	checks = append(checks, checkPermissions(opts.BaseDir))
	for _, name := range AdapterDirs {
		checks = append(checks, checkAdapter(opts.BaseDir, name))
	}
	return checks
}

// Failed reports whether any check failed outright.
func Failed(checks []Check) bool {
	for _, c := range checks {
		if c.Status == Fail {
			return true
		}
	}
	return false
}

func checkDNS(ctx context.Context, opts Options) Check {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if _, err := opts.LookupHost(ctx, opts.Host); err != nil {
		return Check{Name: "network_dns", Status: Warn, Detail: err.Error()}
	}
	return Check{Name: "network_dns", Status: OK, Detail: opts.Host}
}

func checkLedger(opts Options) Check {
	name := "ledger:" + opts.Driver
	ledger, err := storage.Open(opts.Driver, opts.LedgerSource)
	if err != nil {
		return Check{Name: name, Status: Fail, Detail: err.Error()}
	}
	defer ledger.Close()
	if err := ledger.Ping(); err != nil {
		return Check{Name: name, Status: Fail, Detail: err.Error()}
	}
	return Check{Name: name, Status: OK}
}

func checkPermissions(baseDir string) Check {
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		return Check{Name: "permissions", Status: Fail, Detail: "base directory missing"}
	}
	probe, err := os.CreateTemp(baseDir, ".doctor-*")
	if err != nil {
		return Check{Name: "permissions", Status: Fail, Detail: "base directory not writable"}
	}
	probe.Close()
	os.Remove(probe.Name())
	return Check{Name: "permissions", Status: OK}
}

func checkAdapter(baseDir, name string) Check {
	if _, err := os.Stat(filepath.Join(baseDir, name)); err != nil {
		return Check{Name: "adapter:" + name, Status: Warn, Detail: "not found"}
	}
	return Check{Name: "adapter:" + name, Status: OK}
}
