package loader

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"shopfloor/pkg/logger"
)

// FaultyLoadResult outcome of LoadFaultyMachines
type FaultyLoadResult struct {
	Success  bool
	Machines []string
	Message  string
}

// LoadFaultyMachines reads newline separated machine codes. Blank lines and
// duplicates are dropped.
func LoadFaultyMachines(ctx context.Context, path string) *FaultyLoadResult {
	logger.InfoCtx(ctx, "loading faulty machine list: %s", path)

	f, err := os.Open(path)
	if err != nil {
		msg := fmt.Sprintf("failed to load faulty machine list: %v", err)
		logger.ErrorCtx(ctx, "%s", msg)
		return &FaultyLoadResult{Success: false, Machines: []string{}, Message: msg}
	}
	defer f.Close()

	machines := make([]string, 0)
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		code := strings.TrimSpace(sc.Text())
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		machines = append(machines, code)
	}
	if err := sc.Err(); err != nil {
		msg := fmt.Sprintf("failed to load faulty machine list: %v", err)
		logger.ErrorCtx(ctx, "%s", msg)
		return &FaultyLoadResult{Success: false, Machines: []string{}, Message: msg}
	}

	logger.InfoCtx(ctx, "faulty machine list loaded, machines: %d", len(machines))
	return &FaultyLoadResult{
		Success:  true,
		Machines: machines,
		Message:  fmt.Sprintf("Faulty machine list loaded successfully. %d machines read.", len(machines)),
	}
}
