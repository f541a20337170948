//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, integration, postgres).
type Test mg.Namespace

// PostgreSQL container settings.
const (
	pgImage     = "docker.io/library/postgres:17-alpine"
	pgContainer = "repokit-postgres-test"
	pgPort      = "55432"
	pgPassword  = "repokit"
	pgDSNEnv    = "REPOKIT_TEST_POSTGRES_DSN"
	pgReadyWait = 30 * time.Second
)

// All runs all tests (unit and integration).
func (Test) All() error {
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs only unit tests, excluding the tests/ directory.
func (Test) Unit() error {
	pkgs, err := unitPackages()
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test", "-v"}, pkgs...)
	return sh.RunV(binGo, args...)
}

// Integration builds first, then runs only integration tests.
func (Test) Integration() error {
	if _, err := os.Stat("tests"); os.IsNotExist(err) {
		fmt.Println("No integration test directory found (tests/).")
		return nil
	}
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "-v", "./tests/...")
}

// Postgres starts a throwaway PostgreSQL container and runs the unit tests
// with REPOKIT_TEST_POSTGRES_DSN pointing at it.
func (Test) Postgres() error {
	dsn := os.Getenv(pgDSNEnv)
	if dsn == "" {
		rt := containerRuntime()
		if rt == "" {
			return fmt.Errorf("no container runtime found (tried podman, docker); set %s to use an existing server", pgDSNEnv)
		}
		if err := startPostgres(rt); err != nil {
			return err
		}
		defer stopPostgres(rt)
		dsn = fmt.Sprintf("postgres://postgres:%s@localhost:%s/postgres?sslmode=disable", pgPassword, pgPort)
	}

	pkgs, err := unitPackages()
	if err != nil {
		return err
	}
	args := append([]string{"test", "-v", "-count=1"}, pkgs...)
	return sh.RunWithV(map[string]string{pgDSNEnv: dsn}, binGo, args...)
}

func unitPackages() ([]string, error) {
	out, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for pkg := range strings.SplitSeq(out, "\n") {
		if pkg != "" && !strings.Contains(pkg, "/tests/") && !strings.HasSuffix(pkg, "/tests") {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs, nil
}

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

// startPostgres runs the container and waits until the server accepts
// connections.
func startPostgres(rt string) error {
	stopPostgres(rt)
	fmt.Fprintln(os.Stderr, "Starting PostgreSQL container...")
	err := sh.Run(rt, "run", "-d", "--rm",
		"--name", pgContainer,
		"-e", "POSTGRES_PASSWORD="+pgPassword,
		"-p", pgPort+":5432",
		pgImage)
	if err != nil {
		return fmt.Errorf("starting postgres container: %w", err)
	}

	deadline := time.Now().Add(pgReadyWait)
	for time.Now().Before(deadline) {
		if exec.Command(rt, "exec", pgContainer, "pg_isready", "-U", "postgres", "-h", "localhost").Run() == nil {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	stopPostgres(rt)
	return fmt.Errorf("postgres not ready after %s", pgReadyWait)
}

// stopPostgres removes the container. Errors are ignored because the
// container may not exist.
func stopPostgres(rt string) {
	_ = exec.Command(rt, "rm", "-f", pgContainer).Run()
}
