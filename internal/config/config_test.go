package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaultsAndSandboxHost(t *testing.T) {
	path := writeConfig(t, `
account:
  cano: "50000000"
  acnt_prdt_cd: "01"
strategy:
  weights:
    AAPL: 0.5
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Trading.Sandbox {
		t.Fatal("sandbox must default on")
	}
	if got := cfg.BaseURL(); got != "https://openapivts.koreainvestment.com:29443" {
		t.Fatalf("base url = %q", got)
	}
	if cfg.Account.ExchangeCd != "NASD" || cfg.Account.CurrencyCd != "USD" {
		t.Fatalf("unexpected account defaults: %+v", cfg.Account)
	}
	if cfg.Cron.Rebalance == "" {
		t.Fatal("rebalance schedule default missing")
	}
}

func TestLoadProductionHost(t *testing.T) {
	path := writeConfig(t, `
trading:
  sandbox: false
account:
  cano: "50000000"
  acnt_prdt_cd: "01"
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.BaseURL(); got != "https://openapi.koreainvestment.com:9443" {
		t.Fatalf("base url = %q", got)
	}
}

func TestLoadRequiresAccount(t *testing.T) {
	path := writeConfig(t, `
account:
  cano: ""
`)
	if _, err := Load(path, false); err == nil {
		t.Fatal("expected error for missing cano")
	}
}

func TestLoadRejectsNegativeWeight(t *testing.T) {
	path := writeConfig(t, `
account:
  cano: "50000000"
  acnt_prdt_cd: "01"
strategy:
  weights:
    AAPL: -0.1
`)
	if _, err := Load(path, false); err == nil {
		t.Fatal("expected error for negative weight")
	}
}
