package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/hounds/internal/prompt"
	"github.com/spf13/cobra"
)

// newTestRootCmd creates a root command with persistent flags for testing subcommands
func newTestRootCmd(sub ...*cobra.Command) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hounds",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("log-level", "", "Log level")
	rootCmd.AddCommand(sub...)
	return rootCmd
}

// isolateHome sets HOME to a temp directory to avoid touching real ~/.hounds/
// MUST be called for any test that loads config or opens history
func isolateHome(t *testing.T, tmpDir string) string {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome)
	return tmpHome
}

// run executes hounds with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	rootCmd := newRootCmd()
	want := []string{"version", "simulate", "expected", "strategies", "history", "config", "mcp-server"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestNewSimulateCmd(t *testing.T) {
	cmd := newSimulateCmd()
	if cmd.Use != "simulate" {
		t.Errorf("Use = %q, want simulate", cmd.Use)
	}
	for _, flag := range []string{"paths", "probs", "trials", "seed", "workers", "strategies", "tolerance", "interactive", "record"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
	if cmd.Flags().ShorthandLookup("i") == nil {
		t.Error("missing -i shorthand")
	}
}

func TestSimulateCmd_Flags(t *testing.T) {
	isolateHome(t, t.TempDir())

	out, err := run(t, "", "simulate", "--probs", "0.7,0.7", "--trials", "2000", "--seed", "1")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	for _, want := range []string{
		"***** Results *****",
		"The simulation has been run 2,000 times for a situation with 2 possible paths and 2 dogs.",
		"*** Waldo's Strategy ***",
		"*** Single Dog Strategy ***",
		"out of 2,000 attempts",
		"- Expected 0.700",
		"With a tolerance of 0.005",
		"Seed 1, 1 worker(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, prompt.Welcome) {
		t.Error("should not prompt when --probs is given")
	}
}

func TestSimulateCmd_JSON(t *testing.T) {
	isolateHome(t, t.TempDir())

	out, err := run(t, "", "simulate", "--json", "--paths", "3", "--probs", "0.6,0.8,0.7",
		"--trials", "500", "--seed", "9", "--workers", "2", "--strategies", "consensus,best")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	var got struct {
		Statistics struct {
			Trials  int    `json:"trials"`
			Seed    uint64 `json:"seed"`
			Workers int    `json:"workers"`
			Results []struct {
				Name      string `json:"name"`
				Successes int    `json:"successes"`
			} `json:"results"`
		} `json:"statistics"`
		Expected map[string]float64 `json:"expected"`
		Verdict  *struct {
			A string `json:"a"`
			B string `json:"b"`
		} `json:"verdict"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	s := got.Statistics
	if s.Trials != 500 || s.Seed != 9 || s.Workers != 2 {
		t.Errorf("statistics = %+v", s)
	}
	if len(s.Results) != 2 || s.Results[0].Name != "consensus" || s.Results[1].Name != "best" {
		t.Errorf("results = %+v", s.Results)
	}
	if _, ok := got.Expected["best"]; !ok {
		t.Errorf("expected values missing: %v", got.Expected)
	}
	if got.Verdict == nil || got.Verdict.A != "consensus" || got.Verdict.B != "best" {
		t.Errorf("verdict = %+v", got.Verdict)
	}
}

func TestSimulateCmd_SeedReproducible(t *testing.T) {
	isolateHome(t, t.TempDir())
	args := []string{"simulate", "--json", "--probs", "0.6,0.9", "--trials", "1000", "--seed", "77"}

	a, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	// Elapsed differs between runs; compare the counts only.
	type counts struct {
		Statistics struct {
			Results []struct {
				Successes int `json:"successes"`
			} `json:"results"`
		} `json:"statistics"`
	}
	var ca, cb counts
	if err := json.Unmarshal([]byte(a), &ca); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(b), &cb); err != nil {
		t.Fatal(err)
	}
	for i := range ca.Statistics.Results {
		if ca.Statistics.Results[i] != cb.Statistics.Results[i] {
			t.Errorf("result %d differs with the same seed: %v vs %v", i, ca.Statistics.Results[i], cb.Statistics.Results[i])
		}
	}
}

func TestSimulateCmd_Prompts(t *testing.T) {
	isolateHome(t, t.TempDir())

	stdin := "1\n2\n2\n0.7\n0.7, 0.7\n"
	out, err := run(t, stdin, "simulate", "--trials", "100", "--seed", "4")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	for _, want := range []string{
		prompt.Welcome,
		prompt.PathsPrompt,
		"Invalid input: must be at least 2. Please try again.",
		prompt.DogsPrompt,
		"Invalid input: please enter exactly 2 probabilities. Please try again.",
		"***** Results *****",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimulateCmd_InputEnds(t *testing.T) {
	isolateHome(t, t.TempDir())

	_, err := run(t, "2\n", "simulate")
	if err == nil || !strings.Contains(err.Error(), "input ended") {
		t.Errorf("error = %v, want input ended", err)
	}
}

func TestSimulateCmd_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"probability above one", []string{"--probs", "0.5,1.5"}, "at most 1"},
		{"one path", []string{"--paths", "1", "--probs", "0.5"}, "paths"},
		{"zero trials", []string{"--probs", "0.5", "--trials", "0"}, "trials"},
		{"unknown strategy", []string{"--probs", "0.5", "--strategies", "wolf"}, "unknown strategy"},
		{"not a number", []string{"--probs", "0.5,x"}, "not a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t, t.TempDir())
			args := append([]string{"simulate", "--trials", "10"}, tt.args...)
			out, err := run(t, "", args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
			if strings.Contains(out, "Results") {
				t.Errorf("no trial should run on invalid input:\n%s", out)
			}
		})
	}
}

func TestSimulateCmd_RecordAndHistory(t *testing.T) {
	home := isolateHome(t, t.TempDir())

	out, err := run(t, "", "simulate", "--probs", "0.7,0.7", "--trials", "300", "--seed", "11", "--record")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if !strings.Contains(out, "Recorded as ") {
		t.Errorf("missing recorded footer:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".hounds", "hounds.db")); err != nil {
		t.Fatalf("history database not created: %v", err)
	}

	out, err = run(t, "", "history", "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var list struct {
		Runs []struct {
			ID   string `json:"id"`
			Seed uint64 `json:"seed"`
		} `json:"runs"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if list.Count != 1 || list.Runs[0].Seed != 11 {
		t.Fatalf("history = %+v", list)
	}

	id := list.Runs[0].ID
	out, err = run(t, "", "history", "show", id[:8])
	if err != nil {
		t.Fatalf("history show failed: %v", err)
	}
	if !strings.Contains(out, "Run "+id) || !strings.Contains(out, "Seed 11") {
		t.Errorf("show output:\n%s", out)
	}

	if _, err := run(t, "", "history", "clear"); err == nil {
		t.Error("clear without --yes should fail")
	}
	out, err = run(t, "", "history", "clear", "--yes")
	if err != nil {
		t.Fatalf("history clear failed: %v", err)
	}
	if !strings.Contains(out, "Deleted 1 run(s)") {
		t.Errorf("clear output: %s", out)
	}

	out, err = run(t, "", "history", "list")
	if err != nil {
		t.Fatalf("history list failed: %v", err)
	}
	if !strings.Contains(out, "No recorded runs.") {
		t.Errorf("list after clear: %s", out)
	}
}

func TestSimulateCmd_LocalHistoryFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	project := filepath.Join(tmpDir, "project")
	t.Setenv("HOUNDS_HISTORY_ENABLED", "true")
	t.Setenv("HOUNDS_HISTORY_SCOPE", "local")

	if _, err := run(t, "", "simulate", "--root", project, "--probs", "0.8", "--trials", "50"); err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(project, ".hounds", "hounds.db")); err != nil {
		t.Errorf("local history not created: %v", err)
	}
}

func TestHistoryExportImport(t *testing.T) {
	home := isolateHome(t, t.TempDir())

	for _, seed := range []string{"1", "2"} {
		if _, err := run(t, "", "simulate", "--probs", "0.7,0.7", "--trials", "100", "--seed", seed, "--record"); err != nil {
			t.Fatalf("simulate failed: %v", err)
		}
	}

	out, err := run(t, "", "history", "export")
	if err != nil {
		t.Fatalf("history export failed: %v", err)
	}
	if !strings.Contains(out, "Exported 2 run(s)") {
		t.Errorf("export output: %s", out)
	}
	backups, err := filepath.Glob(filepath.Join(home, ".hounds", "backups", "hounds-backup-*.json.gz"))
	if err != nil || len(backups) != 1 {
		t.Fatalf("backups = %v, %v", backups, err)
	}

	out, err = run(t, "", "history", "import", backups[0])
	if err != nil {
		t.Fatalf("history import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 0 run(s), skipped 2") {
		t.Errorf("merge import output: %s", out)
	}

	if _, err := run(t, "", "history", "clear", "--yes"); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "", "history", "import", backups[0], "--replace", "--json")
	if err != nil {
		t.Fatalf("history import --replace failed: %v", err)
	}
	var result struct {
		Imported int `json:"imported"`
		Removed  int `json:"removed"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if result.Imported != 2 || result.Removed != 0 {
		t.Errorf("import result = %+v", result)
	}

	if _, err := run(t, "", "history", "import", filepath.Join(home, ".hounds", "backups", "missing.json.gz")); err == nil {
		t.Error("import of a missing file should fail")
	}
	_, err = run(t, "", "history", "export", filepath.Join(home, "elsewhere.json.gz"))
	if err == nil || !strings.Contains(err.Error(), "outside allowed directories") {
		t.Errorf("export outside the backup dirs: error = %v", err)
	}
}

func TestHistoryShow_NotFound(t *testing.T) {
	isolateHome(t, t.TempDir())
	_, err := run(t, "", "history", "show", "nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestExpectedCmd(t *testing.T) {
	isolateHome(t, t.TempDir())

	out, err := run(t, "", "expected", "--probs", "0.7,0.7", "--strategies", "consensus,single,random")
	if err != nil {
		t.Fatalf("expected failed: %v", err)
	}
	for _, want := range []string{"Exact success probabilities", "Waldo's Strategy", "0.7000", "0.5000", "0.8448"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExpectedCmd_RequiresProbs(t *testing.T) {
	isolateHome(t, t.TempDir())
	if _, err := run(t, "", "expected"); err == nil {
		t.Error("expected without --probs should fail")
	}
}

func TestExpectedCmd_InvalidConfig(t *testing.T) {
	isolateHome(t, t.TempDir())

	t.Setenv("HOUNDS_HISTORY_SCOPE", "team")
	_, err := run(t, "", "expected", "--probs", "0.7,0.7")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("error = %v, want invalid configuration", err)
	}

	t.Setenv("HOUNDS_HISTORY_SCOPE", "")
	if _, err := run(t, "", "expected", "--probs", "0.7,0.7", "--paths", "1"); err == nil {
		t.Error("expected with one path should fail")
	}
}

func TestStrategiesCmd(t *testing.T) {
	out, err := run(t, "", "strategies")
	if err != nil {
		t.Fatalf("strategies failed: %v", err)
	}
	for _, want := range []string{"consensus (default)", "single (default)", "best", "random"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCmd(t *testing.T) {
	home := isolateHome(t, t.TempDir())

	out, err := run(t, "", "config", "set", "simulation.trials", "500")
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if !strings.Contains(out, "Set simulation.trials = 500") {
		t.Errorf("set output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".hounds", "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}

	out, err = run(t, "", "config", "get", "simulation.trials")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if strings.TrimSpace(out) != "simulation.trials = 500" {
		t.Errorf("get output: %q", out)
	}

	out, err = run(t, "", "config", "list")
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	if !strings.Contains(out, "simulation.trials:") || !strings.Contains(out, "history.scope:") {
		t.Errorf("list output:\n%s", out)
	}

	// The configured default now drives simulate.
	out, err = run(t, "", "simulate", "--probs", "0.7", "--seed", "2")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if !strings.Contains(out, "has been run 500 times") {
		t.Errorf("simulate ignored configured trials:\n%s", out)
	}
}

func TestConfigCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"config", "set", "simulation.dogs", "3"}},
		{"not an integer", []string{"config", "set", "simulation.trials", "many"}},
		{"fails validation", []string{"config", "set", "simulation.paths", "1"}},
		{"unknown strategy", []string{"config", "set", "simulation.strategies", "wolf"}},
		{"get unknown key", []string{"config", "get", "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t, t.TempDir())
			if _, err := run(t, "", tt.args...); err == nil {
				t.Errorf("%v should fail", tt.args)
			}
		})
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version", "--json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestNewMCPServerCmd(t *testing.T) {
	cmd := newMCPServerCmd()
	if cmd.Use != "mcp-server" {
		t.Errorf("Use = %q", cmd.Use)
	}
	if cmd.Flags().Lookup("history") == nil {
		t.Error("missing --history flag")
	}
}

func TestHistoryDir(t *testing.T) {
	tmpDir := t.TempDir()
	home := isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	if err := rootCmd.ParseFlags([]string{"--root", tmpDir}); err != nil {
		t.Fatal(err)
	}

	local, err := historyDir(rootCmd, "local")
	if err != nil || local != filepath.Join(tmpDir, ".hounds") {
		t.Errorf("local = %q, %v", local, err)
	}
	global, err := historyDir(rootCmd, "global")
	if err != nil || global != filepath.Join(home, ".hounds") {
		t.Errorf("global = %q, %v", global, err)
	}
	if _, err := historyDir(rootCmd, "team"); err == nil {
		t.Error("invalid scope should fail")
	}
}
