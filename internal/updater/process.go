package updater

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

const stopGracePeriod = 10 * time.Second

// process is a supervised agent process.
type process interface {
	PID() int
	IsAlive() bool
	Stop() error
}

// isAlive reports whether p is a running process. A nil handle is not
// alive.
func isAlive(p process) bool {
	return p != nil && p.IsAlive()
}

// osProcess supervises a child started with exec.Cmd. A goroutine reaps
// the child so IsAlive reflects exits promptly.
type osProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func startProcess(bin string, args []string, dir string) (process, error) {
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", bin, err)
	}
	p := &osProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *osProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *osProcess) IsAlive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Stop interrupts the child and waits for it to exit, killing it after the
// grace period.
func (p *osProcess) Stop() error {
	if !p.IsAlive() {
		return nil
	}
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		return p.cmd.Process.Kill()
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(stopGracePeriod):
		if err := p.cmd.Process.Kill(); err != nil {
			return err
		}
		<-p.done
		return nil
	}
}
