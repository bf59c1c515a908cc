package cmd

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/leeineian/jukebox/sys"
)

// acquirePIDLock takes an exclusive flock on path, terminating any older
// instance that still holds it, and writes our PID. The returned func
// releases the lock and removes the file.
func acquirePIDLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open PID file: %w", err)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if err != syscall.EWOULDBLOCK {
			_ = f.Close()
			return nil, fmt.Errorf("failed to lock PID file: %w", err)
		}

		var oldPid int
		_, _ = f.Seek(0, 0)
		if _, scanErr := fmt.Fscanf(f, "%d", &oldPid); scanErr != nil || oldPid == os.Getpid() {
			<-ticker.C
			continue
		}

		process, procErr := os.FindProcess(oldPid)
		if procErr != nil {
			<-ticker.C
			continue
		}

		sys.LogInfo(sys.MsgBotKillingOld, oldPid)
		_ = process.Signal(syscall.SIGTERM)
		if !waitExit(process, ticker, 5*time.Second) {
			sys.LogWarn("Old process %d is stubborn. Sending SIGKILL...", oldPid)
			_ = process.Signal(syscall.SIGKILL)
			if !waitExit(process, ticker, 2*time.Second) {
				sys.LogWarn("Process %d still exists after SIGKILL", oldPid)
			}
		}
		sys.LogInfo(sys.MsgBotOldTerminated)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d", os.Getpid())
	_ = f.Sync()

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		_ = os.Remove(path)
	}, nil
}

func waitExit(process *os.Process, ticker *time.Ticker, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case <-ticker.C:
			if err := process.Signal(syscall.Signal(0)); err != nil {
				return true
			}
		case <-deadline:
			return false
		}
	}
}
