package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

func main() {
	var (
		testsDir         string
		shortFlag        bool
		pkgParallel      int
		count            int
		timeout          time.Duration
		integrationRun   string
		integrationPaths string
		verbose          bool
	)

	flag.StringVar(&testsDir, "tests-dir", "/app/tests", "directory containing compiled test binaries")
	flag.BoolVar(&shortFlag, "short", false, "run tests with -test.short")
	flag.IntVar(&pkgParallel, "pkg-parallel", runtime.NumCPU(), "number of packages to run in parallel")
	flag.IntVar(&count, "count", 1, "pass -test.count to disable caching when set to 1")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "per-binary -test.timeout")
	flag.StringVar(&integrationRun, "integration-run", "", "regex of integration test(s) to run with -test.run")
	flag.StringVar(&integrationPaths, "integration-path", "", "comma-separated package paths like 'api/services/billing/db,api/router' for the integration run")
	flag.BoolVar(&verbose, "v", true, "add -test.v to test binaries")
	flag.Parse()

	bins, err := collectTestBinaries(testsDir)
	if err != nil {
		fatal(err)
	}
	if len(bins) == 0 {
		fatal(errors.New("no test binaries found"))
	}

	integrationBins, err := resolveIntegrationBins(testsDir, integrationRun, integrationPaths)
	if err != nil {
		fatal(err)
	}

	// Exclude integration packages from the unit pass to avoid double-running.
	unitBins := make([]string, 0, len(bins))
	for _, b := range bins {
		if !containsFile(integrationBins, b) {
			unitBins = append(unitBins, b)
		}
	}

	var result *multierror.Error
	started := time.Now()
	fmt.Println("==> Running unit tests")
	if err := runBinaries(unitBins, testArgs(verbose, shortFlag, count, 0, timeout), pkgParallel); err != nil {
		result = multierror.Append(result, err)
	}

	if len(integrationBins) > 0 {
		fmt.Printf("==> Running integration tests in %s with -test.run=%s\n", integrationPaths, integrationRun)
		args := testArgs(verbose, shortFlag, count, 1, timeout) // force -test.parallel=1 for integration
		args = append(args, "-test.run", integrationRun)
		// Integration packages share the database, so run them one at a time.
		if err := runBinaries(integrationBins, args, 1); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		fatal(err)
	}
	fmt.Printf("==> All tests passed in %s\n", time.Since(started).Round(time.Millisecond))
}

func resolveIntegrationBins(testsDir, run, paths string) ([]string, error) {
	if run == "" {
		return nil, nil
	}
	if strings.TrimSpace(paths) == "" {
		return nil, errors.New("integration-path is required when integration-run is set")
	}
	var bins []string
	for _, p := range strings.Split(paths, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		bin := filepath.Join(testsDir, filepath.FromSlash(p)+".test")
		if _, err := os.Stat(bin); err != nil {
			return nil, fmt.Errorf("integration binary not found at %s: %w", bin, err)
		}
		bins = append(bins, bin)
	}
	return bins, nil
}

func containsFile(files []string, f string) bool {
	for _, candidate := range files {
		if sameFile(candidate, f) {
			return true
		}
	}
	return false
}

func collectTestBinaries(root string) ([]string, error) {
	var bins []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".test") {
			bins = append(bins, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(bins)
	return bins, nil
}

func testArgs(verbose, short bool, count, testParallel int, timeout time.Duration) []string {
	args := []string{}
	if verbose {
		args = append(args, "-test.v")
	}
	if short {
		args = append(args, "-test.short")
	}
	if count > 0 {
		args = append(args, fmt.Sprintf("-test.count=%d", count))
	}
	if testParallel > 0 {
		args = append(args, fmt.Sprintf("-test.parallel=%d", testParallel))
	}
	if timeout > 0 {
		args = append(args, "-test.timeout="+timeout.String())
	}
	return args
}

// runBinaries runs every binary and reports all failing packages, not just the first.
func runBinaries(bins []string, args []string, parallel int) error {
	if len(bins) == 0 {
		return nil
	}
	if parallel < 1 {
		parallel = 1
	}
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed *multierror.Error

	for _, b := range bins {
		b := b
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			cmd := exec.Command(b, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			cmd.Env = os.Environ()
			// Packages embed migrations and look for .env upward, so run next to the sources when present.
			cmd.Dir = "/app"
			if wd := strings.TrimSuffix(b, ".test"); wd != b {
				if fi, err := os.Stat(wd); err == nil && fi.IsDir() {
					cmd.Dir = wd
				}
			}
			fmt.Printf("[RUN] %s %s\n", b, strings.Join(args, " "))
			start := time.Now()
			if err := cmd.Run(); err != nil {
				fmt.Printf("[FAIL] %s (%s)\n", b, time.Since(start).Round(time.Millisecond))
				mu.Lock()
				failed = multierror.Append(failed, fmt.Errorf("%s: %w", b, err))
				mu.Unlock()
				return
			}
			fmt.Printf("[PASS] %s (%s)\n", b, time.Since(start).Round(time.Millisecond))
		}()
	}
	wg.Wait()
	return failed.ErrorOrNil()
}

func sameFile(a, b string) bool {
	ap, _ := filepath.Abs(a)
	bp, _ := filepath.Abs(b)
	return ap == bp
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
