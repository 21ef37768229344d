package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rewired-gh/botia5m/internal/storage"
)

func resolveOK(_ context.Context, host string) ([]string, error) {
	return []string{"203.0.113.10"}, nil
}

func resolveFail(_ context.Context, host string) ([]string, error) {
	return nil, errors.New("no such host")
}

func byName(checks []Check) map[string]Check {
	out := make(map[string]Check, len(checks))
	for _, c := range checks {
		out[c.Name] = c
	}
	return out
}

func TestRun_AllHealthy(t *testing.T) {
	base := t.TempDir()
	for _, dir := range AdapterDirs {
		if err := os.Mkdir(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
	}

	checks := Run(context.Background(), Options{
		BaseDir:      base,
		Driver:       storage.DriverSQLite,
		LedgerSource: filepath.Join(base, "data", "botia5m.sqlite"),
		LookupHost:   resolveOK,
	})

	if len(checks) != 4+len(AdapterDirs) {
		t.Fatalf("Expected %d checks, got %d", 4+len(AdapterDirs), len(checks))
	}
	for _, c := range checks {
		if c.Status != OK {
			t.Errorf("Expected %s to be OK, got %s (%s)", c.Name, c.Status, c.Detail)
		}
	}
	if Failed(checks) {
		t.Error("Expected no failures")
	}
	if checks[0].Name != "go" {
		t.Errorf("Expected runtime check first, got %s", checks[0].Name)
	}
}

func TestRun_DegradedEnvironment(t *testing.T) {
	base := t.TempDir()

	checks := byName(Run(context.Background(), Options{
		BaseDir:      base,
		Driver:       "mysql",
		LedgerSource: "unused",
		LookupHost:   resolveFail,
	}))

	if c := checks["network_dns"]; c.Status != Warn {
		t.Errorf("Expected DNS WARN, got %s", c.Status)
	}
	if c := checks["ledger:mysql"]; c.Status != Fail {
		t.Errorf("Expected ledger FAIL, got %s", c.Status)
	}
	if c := checks["adapter:4coinsbot-main"]; c.Status != Warn {
		t.Errorf("Expected adapter WARN, got %s", c.Status)
	}
}

func TestRun_MissingBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "missing")

	checks := byName(Run(context.Background(), Options{
		BaseDir:      base,
		Driver:       storage.DriverSQLite,
		LedgerSource: filepath.Join(t.TempDir(), "ledger.sqlite"),
		LookupHost:   resolveOK,
	}))

	if c := checks["permissions"]; c.Status != Fail {
		t.Errorf("Expected permissions FAIL, got %s", c.Status)
	}
}

func TestCheckString(t *testing.T) {
	c := Check{Name: "network_dns", Status: Warn, Detail: "no such host"}
	if got := c.String(); !strings.HasPrefix(got, "WARN network_dns") || !strings.Contains(got, "no such host") {
		t.Errorf("Unexpected rendering: %q", got)
	}
}
