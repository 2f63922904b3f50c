// Package hostports finds the TCP ports something is listening on on this
// machine, whoever owns them.
package hostports

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/0xa1bed0/omd/internal/logs"
)

// ErrUnsupported is returned on platforms without a scanner.
var ErrUnsupported = errors.New("listening port scan is not supported on this platform")

var procNetFiles = []string{"/proc/net/tcp", "/proc/net/tcp6"}

// Listening returns the sorted set of listening TCP ports. Linux reads
// /proc/net through fsys, macOS asks lsof.
func Listening(ctx context.Context, fsys afero.Fs, goos string) ([]int, error) {
	switch goos {
	case "linux":
		set := map[int]struct{}{}
		for _, file := range procNetFiles {
			f, err := fsys.Open(file)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, fmt.Errorf("open %s: %w", file, err)
			}
			err = parseProcNet(f, set)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", file, err)
			}
		}
		return sorted(set), nil
	case "darwin":
		return scanLsof(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}

// tcpListen is the st column value of a listening socket in /proc/net/tcp.
const tcpListen = "0A"

func parseProcNet(r io.Reader, set map[int]struct{}) error {
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if first {
			// header
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[3] != tcpListen {
			continue
		}
		i := strings.LastIndexByte(fields[1], ':')
		if i < 0 {
			continue
		}
		p, err := strconv.ParseUint(fields[1][i+1:], 16, 16)
		if err != nil || p == 0 {
			continue
		}
		set[int(p)] = struct{}{}
	}
	return scanner.Err()
}

// lsofPort matches the port of the NAME column, "*:8080 (LISTEN)".
var lsofPort = regexp.MustCompile(`:(\d{1,5})\s+\(LISTEN\)`)

func scanLsof(ctx context.Context) ([]int, error) {
	cmd := exec.CommandContext(ctx, "lsof", "-nP", "-iTCP", "-sTCP:LISTEN")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsof stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsof start: %w", err)
	}

	set := map[int]struct{}{}
	perr := parseLsof(stdout, set)

	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		// lsof exits 1 when nothing matched
		logs.Debugf("lsof exited with error: %v", err)
	}
	if perr != nil {
		return nil, fmt.Errorf("lsof scan: %w", perr)
	}
	return sorted(set), nil
}

func parseLsof(r io.Reader, set map[int]struct{}) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "TCP") {
			continue
		}
		for _, m := range lsofPort.FindAllStringSubmatch(line, -1) {
			p, err := strconv.Atoi(m[1])
			if err != nil || p <= 0 || p > 65535 {
				continue
			}
			set[p] = struct{}{}
		}
	}
	return scanner.Err()
}

func sorted(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
