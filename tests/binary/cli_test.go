package binary_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

type jsonReport struct {
	Results []struct {
		Status    string `json:"status"`
		ProofSize int    `json:"proof_size"`
		Steps     int    `json:"steps"`
	} `json:"results"`
	Failures []struct {
		ErrKind string `json:"error_kind"`
	} `json:"failures"`
}

func TestRunCommandJSON(t *testing.T) {
	bin := buildBench(t)

	stdout, stderr, code := runBench(t, bin, nil,
		"run", "--backend", "p3", "--hash", "keccak,blake3-192", "--steps", "256",
		"--columns", "3", "--threads", "1", "--format", "json", "--log-level", "warn")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}

	var rep jsonReport
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("Failed to parse report: %v\n%s", err, stdout)
	}
	if len(rep.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(rep.Results))
	}
	for i, r := range rep.Results {
		if r.Status != "recorded" || r.ProofSize <= 0 {
			t.Errorf("result %d: status %s, proof size %d", i, r.Status, r.ProofSize)
		}
	}
}

func TestRunCommandEnvironment(t *testing.T) {
	bin := buildBench(t)

	env := []string{"BACKEND=p3", "STEPS=128", "COLUMNS=0,3", "NUM_THREADS=1"}
	stdout, stderr, code := runBench(t, bin, env, "run", "--format", "json", "--log-level", "error")
	if code != 0 {
		t.Fatalf("a failed trial must not fail the process: exit %d, stderr: %s", code, stderr)
	}

	var rep jsonReport
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("Failed to parse report: %v", err)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].ErrKind != "InvalidDimensions" {
		t.Errorf("expected one InvalidDimensions failure, got %+v", rep.Failures)
	}
}

func TestReportWriteFailureExitCode(t *testing.T) {
	bin := buildBench(t)

	out := filepath.Join(t.TempDir(), "missing", "report.md")
	_, stderr, code := runBench(t, bin, nil,
		"run", "--backend", "p3", "--steps", "128", "--threads", "1", "--out", out, "--log-level", "error")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "IOError") {
		t.Errorf("expected an IOError on stderr, got: %s", stderr)
	}
}

func TestStrategiesCommand(t *testing.T) {
	bin := buildBench(t)

	stdout, _, code := runBench(t, bin, nil, "strategies")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	for _, name := range []string{"keccak", "poseidon2", "rpo", "winterfell"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("strategies output is missing %s", name)
		}
	}
}

func buildBench(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary")
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		t.Skipf("Skipping test: %v", err)
	}

	binaryPath := filepath.Join(t.TempDir(), "vybium-stark-bench")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/vybium-stark-bench")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("Skipping test: build failed: %v, output: %s", err, output)
	}
	return binaryPath
}

func runBench(t *testing.T, bin string, env []string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run %s: %v", bin, err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project root not found")
		}
		dir = parent
	}
}
