//go:build mage

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// LocalStack container constants.
const (
	localstackImage     = "localstack/localstack:latest"
	localstackContainer = "innkeeper-localstack"
	localstackPort      = "4566"
	localstackHealthURL = "http://localhost:" + localstackPort + "/_localstack/health"
	localstackReadyWait = 60 * time.Second
)

// LocalStack groups targets that manage the local AWS emulator.
type LocalStack mg.Namespace

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

func requireRuntime() (string, error) {
	rt := containerRuntime()
	if rt == "" {
		return "", fmt.Errorf("no container runtime found (tried podman, docker)")
	}
	return rt, nil
}

// Start runs LocalStack in the background with API Gateway enabled and
// waits until its health endpoint answers.
func (LocalStack) Start() error {
	rt, err := requireRuntime()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Starting LocalStack...")
	err = sh.RunV(rt, "run", "-d", "--rm",
		"--name", localstackContainer,
		"-p", localstackPort+":"+localstackPort,
		"-e", "SERVICES=apigateway",
		localstackImage)
	if err != nil {
		return err
	}
	return waitHealthy(localstackHealthURL, localstackReadyWait)
}

// Stop removes the LocalStack container. A container that is not running
// is not an error.
func (LocalStack) Stop() error {
	rt, err := requireRuntime()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Stopping LocalStack...")
	_ = exec.Command(rt, "stop", localstackContainer).Run()
	return nil
}

// Logs prints the LocalStack container logs.
func (LocalStack) Logs() error {
	rt, err := requireRuntime()
	if err != nil {
		return err
	}
	return sh.RunV(rt, "logs", localstackContainer)
}

func waitHealthy(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				fmt.Fprintln(os.Stderr, "LocalStack is ready")
				return nil
			}
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("localstack not healthy after %s", timeout)
}
