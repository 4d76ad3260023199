package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestCommandTree(t *testing.T) {
	paths := [][]string{
		{"brief"},
		{"alerts", "list"},
		{"alerts", "add", "price"},
		{"alerts", "add", "news"},
		{"alerts", "add", "volatility"},
		{"alerts", "remove"},
		{"alerts", "check"},
		{"alerts", "history"},
		{"news"},
		{"calendar"},
		{"portfolio", "show"},
		{"portfolio", "add"},
		{"portfolio", "remove"},
		{"portfolio", "sectors"},
		{"forex"},
		{"indices"},
		{"commodities"},
		{"movers"},
		{"chart"},
		{"warm"},
		{"run"},
		{"serve"},
		{"notify-test"},
		{"version"},
	}
	for _, p := range paths {
		cmd, _, err := rootCmd.Find(p)
		if err != nil || cmd.Name() != p[len(p)-1] {
			t.Fatalf("command %q not registered: %v", strings.Join(p, " "), err)
		}
	}
}

func TestArgValidation(t *testing.T) {
	cmd, _, _ := rootCmd.Find([]string{"alerts", "add", "price"})
	if err := cmd.Args(cmd, []string{"BHP.AX", "above"}); err == nil {
		t.Fatal("price alert needs three arguments")
	}
	cmd, _, _ = rootCmd.Find([]string{"portfolio", "remove"})
	if err := cmd.Args(cmd, []string{"BHP.AX"}); err != nil {
		t.Fatalf("shares should be optional: %v", err)
	}
}

func TestParseDecimal(t *testing.T) {
	if d, err := parseDecimal("target", "50.25"); err != nil || d.String() != "50.25" {
		t.Fatalf("parse: %v %v", d, err)
	}
	if _, err := parseDecimal("target", "fifty"); err == nil || !strings.Contains(err.Error(), "invalid target") {
		t.Fatalf("expected named error, got %v", err)
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"version", "--config", "/does/not/exist.yaml"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "version: ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
