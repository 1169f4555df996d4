// Package main benchmarks the mergecheck CLI against generated state files.
// Each size is evaluated several times without a cache and several times with a
// SQLite cache, treating the first cached run as cold and averaging the rest as warm.
// Results are written as CSV for performance tracking.
//
// Prerequisites:
// - mergecheck binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/huangsam/mergecheck/internal/statefile"
	"github.com/huangsam/mergecheck/schema"
	"gopkg.in/yaml.v3"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	MergeRequests int
	NoCacheTime   string
	ColdTime      string
	WarmTime      string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Sizes       []int
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     14,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Sizes:       []int{10, 100, 1000, 5000},
	}

	if _, err := exec.LookPath("mergecheck"); err != nil {
		fmt.Printf("Prerequisites check failed: mergecheck binary not found in PATH\n")
		os.Exit(1)
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}

	var results []BenchmarkResult
	for _, size := range config.Sizes {
		result, err := runBenchmarkSuite(config, size)
		if err != nil {
			fmt.Printf("Failed to benchmark %d merge requests: %v\n", size, err)
			os.Exit(1)
		}
		results = append(results, result)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}
	printSummary(results)
}

// generateStateFile writes a state file with size merge requests. Every third
// merge request is blocked and every fifth is still being scanned.
func generateStateFile(path string, size int) error {
	doc := statefile.Document{Policies: map[string][]schema.SecurityPolicy{
		"bench/app": {{PolicyID: "release-bypass", BypassSettings: schema.BypassSettings{
			Branches: []schema.BranchException{{Source: "release/**", Target: "main"}},
		}}},
	}}
	for i := 1; i <= size; i++ {
		entry := statefile.MergeRequestEntry{
			Project:      "bench/app",
			IID:          i,
			Title:        fmt.Sprintf("change %d", i),
			Author:       fmt.Sprintf("dev%d", i%17),
			SourceBranch: fmt.Sprintf("feature/%d", i),
			TargetBranch: "main",
			HeadSHA:      fmt.Sprintf("%040x", i),
			Approved:     i%3 != 0,
		}
		switch {
		case i%5 == 0:
			entry.Violations = []schema.ScanResultPolicyViolation{{PolicyRuleID: "sast", State: schema.ViolationRunning}}
		case i%3 == 0:
			entry.Violations = []schema.ScanResultPolicyViolation{{PolicyRuleID: "sast", State: schema.ViolationFailed}}
		}
		doc.MergeRequests = append(doc.MergeRequests, entry)
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for one size.
func runBenchmarkSuite(config BenchmarkConfig, size int) (BenchmarkResult, error) {
	fmt.Printf("Benchmarking %d merge requests\n", size)

	statePath := filepath.Join(config.WorkDir, fmt.Sprintf("state_%d.yaml", size))
	if err := generateStateFile(statePath, size); err != nil {
		return BenchmarkResult{}, fmt.Errorf("failed to generate state file: %w", err)
	}
	cachePath := filepath.Join(config.WorkDir, fmt.Sprintf("cache_%d.db", size))
	_ = os.Remove(cachePath)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, statePath, cacheBackend, cachePath, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}
	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		MergeRequests: size,
		NoCacheTime:   noCacheAvg,
		ColdTime:      coldTimeStr,
		WarmTime:      warmAvg,
	}, nil
}

// runBenchmark runs evaluate numRuns times and returns the cold time and warm times.
func runBenchmark(config BenchmarkConfig, statePath, cacheBackend, cachePath string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"evaluate",
		"--state-file", statePath,
		"--cache-backend", cacheBackend,
		"--cache-db-connect", cachePath,
		"--workers", fmt.Sprint(config.Workers),
		"--output", "json",
		"--output-file", os.DevNull,
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		err := exec.CommandContext(ctx, "mergecheck", args...).Run()
		elapsed := time.Since(start).Seconds()
		cancel()

		if isSuccess(err) {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess treats every verdict exit code as a completed run.
func isSuccess(err error) bool {
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return code == 1 || code == 2
	}
	return false
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("mergecheck_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"merge_requests", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{fmt.Sprint(result.MergeRequests), result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %6d MRs: No-cache: %s, Cold: %s, Warm: %s\n", result.MergeRequests, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
