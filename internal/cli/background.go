package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	backgroundCmd.AddCommand(backgroundStartCmd, backgroundStopCmd, backgroundStatusCmd)
	rootCmd.AddCommand(backgroundCmd)
}

var backgroundCmd = &cobra.Command{
	Use:   "background",
	Short: "Run the orchestrator as a detached background process",
}

var backgroundStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Fork `system start` into a detached background process",
	Args:  exactArgs(0, "background start"),
	RunE:  runBackgroundStart,
}

func runBackgroundStart(cmd *cobra.Command, args []string) error {
	if pid, _ := readPIDFile("swarmd"); pid != 0 && processAlive(pid) {
		return opError(fmt.Errorf("swarmd is already running (pid %d)", pid))
	}

	self, err := os.Executable()
	if err != nil {
		return opError(fmt.Errorf("resolve executable: %w", err))
	}

	dir, err := pidFileDir()
	if err != nil {
		return opError(err)
	}
	logPath := filepath.Join(dir, "swarmd.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return opError(fmt.Errorf("open log file: %w", err))
	}
	defer logFile.Close()

	proc := exec.Command(self, "system", "start")
	proc.Stdout = logFile
	proc.Stderr = logFile
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return opError(fmt.Errorf("start background process: %w", err))
	}

	// system start writes its own pidfile once it has loaded config; record it
	// here too so a caller that races a `background status` immediately
	// after still finds something, even before that write lands.
	if err := writePIDFile("swarmd", proc.Process.Pid); err != nil {
		return opError(err)
	}

	fmt.Printf("swarmd: started in background (pid %d), logging to %s\n", proc.Process.Pid, logPath)
	return nil
}

var backgroundStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the detached background process",
	Args:  exactArgs(0, "background stop"),
	RunE:  runSystemStop,
}

var backgroundStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a background process is running",
	Args:  exactArgs(0, "background status"),
	RunE:  runBackgroundStatus,
}

func runBackgroundStatus(cmd *cobra.Command, args []string) error {
	pid, err := readPIDFile("swarmd")
	if err != nil {
		return opError(err)
	}
	running := pid != 0 && processAlive(pid)
	return printJSON(map[string]any{"running": running, "pid": pid})
}
