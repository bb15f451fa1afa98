package process

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Cmdline returns the command line of pid as the OS reports it, or "" when
// it cannot be read. It falls back to ps where /proc is unavailable.
func Cmdline(pid int) string {
	if pid <= 0 {
		return ""
	}
	if cmd, err := readProcCmdline(pid); err == nil && cmd != "" {
		return cmd
	}
	if cmd, err := readPsCommand(pid); err == nil {
		return cmd
	}
	return ""
}

func readProcCmdline(pid int) (string, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return "", err
	}
	var args []string
	for _, part := range bytes.Split(data, []byte{0}) {
		if len(part) > 0 {
			args = append(args, string(part))
		}
	}
	return strings.Join(args, " "), nil
}

func readPsCommand(pid int) (string, error) {
	out, err := exec.Command("ps", "-o", "command=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
