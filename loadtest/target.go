package main

import (
	"fmt"
	"io"
	"log"
	"net"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/shlex"
)

const (
	targetStartupTimeout = 30 * time.Second
	targetStopTimeout    = 10 * time.Second
	targetPollInterval   = 100 * time.Millisecond
)

// target is a server process started for the duration of a plan.
type target struct {
	name    string
	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error
}

// startTarget runs command and waits until address accepts connections.
func startTarget(name string, command string, workdir string, address string, output io.Writer) (*target, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("command %q is empty", command)
	}

	log.Printf("[loadtest][%s] Starting %q, workdir: %s", name, command, workdir)
	cmd := exec.Command(args[0], args[1:]...)
	if workdir != "" {
		cmd.Dir = workdir
	}
	cmd.Stdout = output
	cmd.Stderr = output
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("error starting command %q: %w", command, err)
	}

	t := &target{name: name, cmd: cmd, exited: make(chan struct{})}
	go func() {
		t.waitErr = cmd.Wait()
		close(t.exited)
	}()

	if err := t.waitForListening(address, targetStartupTimeout); err != nil {
		t.stop()
		return nil, err
	}
	return t, nil
}

// waitForListening polls address until it accepts a connection. The probe
// connection is closed without sending anything.
func (t *target) waitForListening(address string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-t.exited:
			return fmt.Errorf("process %d exited before listening on %s: %v", t.cmd.Process.Pid, address, t.waitErr)
		default:
		}
		conn, err := net.DialTimeout("tcp", address, time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(targetPollInterval)
	}
	return fmt.Errorf("failed to connect to %s: all connection attempts failed after trying for %s", address, timeout)
}

// stop sends SIGTERM and falls back to SIGKILL after targetStopTimeout.
func (t *target) stop() {
	select {
	case <-t.exited:
		return
	default:
	}

	pid := t.cmd.Process.Pid
	log.Printf("[loadtest][%s] Sending SIGTERM to process %d", t.name, pid)
	if err := t.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Printf("[loadtest][%s] Failed to send SIGTERM to %d: %v", t.name, pid, err)
	}

	select {
	case <-t.exited:
		log.Printf("[loadtest][%s] Done stopping pid %d", t.name, pid)
		return
	case <-time.After(targetStopTimeout):
	}

	log.Printf("[loadtest][%s] Timed out waiting, sending SIGKILL to process %d", t.name, pid)
	if err := t.cmd.Process.Kill(); err != nil {
		log.Printf("[loadtest][%s] Failed to kill process %d: %v", t.name, pid, err)
	}
	<-t.exited
}
