//go:build mage

// Package main provides build targets for the innkeeper project using Mage.
//
// Usage:
//
//	mage build            Compile innkeeper binary to bin/
//	mage test             Run all tests (unit + integration)
//	mage testUnit         Run only unit tests (exclude integration)
//	mage testIntegration  Run only integration tests (builds first)
//	mage lint             Run golangci-lint
//	mage clean            Remove build artifacts
//	mage install          Install innkeeper to GOPATH/bin
//	mage localstack:start Start a LocalStack container
//	mage localstack:stop  Stop the LocalStack container
//	mage deploy           Build and run "innkeeper setup" against LocalStack
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "innkeeper"
	binaryDir  = "bin"
	cmdDir     = "./cmd/innkeeper"
	versionVar = "github.com/mesh-intelligence/innkeeper/internal/cli.Version"
)

// version returns the version stamped into the binary: INNKEEPER_VERSION
// when set, otherwise the output of git describe.
func version() string {
	if v := os.Getenv("INNKEEPER_VERSION"); v != "" {
		return v
	}
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || out == "" {
		return "0.1.0-dev"
	}
	return strings.TrimPrefix(out, "v")
}

// Build compiles the innkeeper binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := fmt.Sprintf("-X %s=%s", versionVar, version())
	return sh.RunV("go", "build", "-v", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests (unit and integration).
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestUnit runs only unit tests, excluding the tests/ directory.
func TestUnit() error {
	pkgs, err := sh.Output("go", "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for _, pkg := range strings.Split(pkgs, "\n") {
		if pkg != "" && !strings.Contains(pkg, "/tests/") && !strings.HasSuffix(pkg, "/tests") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test"}, unitPkgs...)
	return sh.RunV("go", args...)
}

// TestIntegration builds first, then runs only integration tests.
func TestIntegration() error {
	mg.Deps(Build)
	return sh.RunV("go", "test", "./tests/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Deploy builds innkeeper and provisions the mock API on a running
// LocalStack. Start one first with "mage localstack:start".
func Deploy() error {
	mg.Deps(Build)
	env := map[string]string{"DEBUG": "1"}
	return sh.RunWithV(env, filepath.Join(binaryDir, binaryName), "setup")
}
