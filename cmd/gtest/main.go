package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gci/pkg/codegen"
	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/samples"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the recorded lowering of one sample.
type Golden struct {
	Sample string `json:"sample"`
	Target string `json:"target"`
	Hash   string `json:"hash"`
	Header string `json:"header"`
	Source string `json:"source"`
}

type SampleTestResult struct {
	Sample     string        `json:"sample"`
	Status     string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message    string        `json:"message,omitempty"`
	Diff       string        `json:"diff,omitempty"`
	Hash       string        `json:"hash,omitempty"`
	GoldenHash string        `json:"golden_hash,omitempty"`
	Lower      time.Duration `json:"lower"`
	Compile    *Execution    `json:"compile,omitempty"`
}

type TestSuiteResults map[string]*SampleTestResult

var (
	generateGolden = flag.Bool("generate-golden", false, "Regenerate the golden .json files instead of comparing against them.")
	testSamples    = flag.String("samples", "", "Samples to test (space-separated, default: all).")
	skipSamples    = flag.String("skip", "", "Samples to skip (space-separated).")
	goldenDir      = flag.String("dir", "testdata/golden", "Directory to store/read golden JSON files.")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	target         = flag.String("target", "amd64_sysv", "Target ABI to lower for.")
	compiler       = flag.String("cc", "", "C compiler used to check that the generated source compiles (empty to skip).")
	compilerArgs   = flag.String("cc-args", "-std=c11 -fsyntax-only", "Arguments for the C compiler (space-separated).")
	timeout        = flag.Duration("timeout", 10*time.Second, "Timeout for each compiler invocation.")
	jobs           = flag.Int("j", runtime.NumCPU(), "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *jobs < 1 {
		*jobs = 1
	}

	tempDir, err := os.MkdirTemp("", "gtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	names, err := selectSamples(*testSamples)
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}

	if *generateGolden {
		handleGenerateGolden(names)
		return
	}
	handleRunTestSuite(names, tempDir)
}

// setupInterruptHandler cleans up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func selectSamples(list string) ([]string, error) {
	if list == "" {
		return samples.Names(), nil
	}
	var names []string
	for _, name := range strings.Fields(list) {
		if _, ok := samples.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown sample '%s' (available: %s)", name, strings.Join(samples.Names(), ", "))
		}
		names = append(names, name)
	}
	return names, nil
}

func getJSONPath(sample string) string {
	return filepath.Join(*goldenDir, "."+sample+".json")
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func lowerSample(name string) (*codegen.Output, time.Duration, error) {
	sample, _ := samples.Lookup(name)
	cfg := config.NewConfig()
	cfg.SetTarget(runtime.GOOS, runtime.GOARCH, *target)
	cfg.OutputName = name
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}
	start := time.Now()
	out, err := codegen.NewCBackend(nil).Generate(sample.Build(), cfg)
	return out, time.Since(start), err
}

func handleGenerateGolden(names []string) {
	if err := os.MkdirAll(*goldenDir, 0755); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *goldenDir, err)
	}
	for _, name := range names {
		log.Printf("Generating golden file for %s...\n", name)
		out, _, err := lowerSample(name)
		if err != nil {
			log.Fatalf("%s[ERROR]%s Could not lower %s: %v\n", cRed, cNone, name, err)
		}
		golden := Golden{
			Sample: name,
			Target: *target,
			Hash:   fmt.Sprintf("%016x", out.Sum64()),
			Header: string(out.Header),
			Source: string(out.Source),
		}
		jsonData, err := json.MarshalIndent(golden, "", "  ")
		if err != nil {
			log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
		}
		goldenFileName := getJSONPath(name)
		if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
		}
		log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
	}
}

func handleRunTestSuite(names []string, tempDir string) {
	if *compiler != "" {
		if _, err := exec.LookPath(*compiler); err != nil {
			log.Printf("%s[WARN]%s C compiler '%s' not found. Generated sources will not be compiled.\n", cYellow, cNone, *compiler)
			*compiler = ""
		}
	}

	skipList := make(map[string]bool)
	for _, s := range strings.Fields(*skipSamples) {
		skipList[s] = true
	}

	tasks := make(chan string, len(names))
	resultsChan := make(chan *SampleTestResult, len(names))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range tasks {
				resultsChan <- testSample(name, tempDir)
			}
		}()
	}

	for _, name := range names {
		if skipList[name] {
			resultsChan <- &SampleTestResult{Sample: name, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- name
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*SampleTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].Sample < allResults[j].Sample
	})

	printSummary(allResults)
	resultsMap := writeJSONReport(allResults)

	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func testSample(name, tempDir string) *SampleTestResult {
	goldenFile := getJSONPath(name)
	goldenData, err := os.ReadFile(goldenFile)
	if os.IsNotExist(err) {
		return &SampleTestResult{Sample: name, Status: "SKIP", Message: "No golden file; run with -generate-golden"}
	}
	if err != nil {
		return &SampleTestResult{Sample: name, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &SampleTestResult{Sample: name, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}
	goldenHash, _ := hashFile(goldenFile)

	out, elapsed, err := lowerSample(name)
	if err != nil {
		return &SampleTestResult{Sample: name, Status: "FAIL", Message: "Lowering failed", Diff: err.Error(), GoldenHash: goldenHash}
	}
	result := &SampleTestResult{Sample: name, Hash: fmt.Sprintf("%016x", out.Sum64()), GoldenHash: goldenHash, Lower: elapsed}

	if golden.Target != *target {
		result.Status, result.Message = "SKIP", fmt.Sprintf("Golden file was recorded for target %s", golden.Target)
		return result
	}

	if result.Hash != golden.Hash {
		var diffs strings.Builder
		if d := cmp.Diff(golden.Header, string(out.Header)); d != "" {
			diffs.WriteString(fmt.Sprintf("%s mismatch:\n%s", out.HeaderName, d))
		}
		if d := cmp.Diff(golden.Source, string(out.Source)); d != "" {
			diffs.WriteString(fmt.Sprintf("%s mismatch:\n%s", out.SourceName, d))
		}
		result.Status, result.Message, result.Diff = "FAIL", "Generated C differs from the golden file", diffs.String()
		return result
	}

	if *compiler != "" {
		dir := filepath.Join(tempDir, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			result.Status, result.Message = "ERROR", err.Error()
			return result
		}
		if err := out.WriteFiles(dir); err != nil {
			result.Status, result.Message = "ERROR", err.Error()
			return result
		}
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		args := append(strings.Fields(*compilerArgs), "-I", dir, filepath.Join(dir, out.SourceName))
		cc := executeCommand(ctx, *compiler, args...)
		result.Compile = &cc
		if cc.ExitCode != 0 || cc.TimedOut {
			result.Status, result.Message, result.Diff = "FAIL", "Generated C does not compile", cc.Stderr
			return result
		}
	}

	result.Status, result.Message = "PASS", "Output matches the golden file"
	return result
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if ctx.Err() == context.DeadlineExceeded {
		execResult.TimedOut = true
		execResult.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			execResult.ExitCode = exitErr.ExitCode()
		} else {
			execResult.ExitCode = -2
			execResult.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return execResult
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*SampleTestResult) {
	var passed, failed, skipped, errored int
	var totalLower, totalCompile time.Duration
	var compiled int

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.Sample, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}

		totalLower += result.Lower
		if result.Compile != nil {
			compiled++
			totalCompile += result.Compile.Duration
		}
		if *verbose && result.Hash != "" {
			line := fmt.Sprintf("  [lower: %s | hash: %s", formatDuration(result.Lower), result.Hash)
			if result.Compile != nil {
				line += fmt.Sprintf(" | cc: %s", formatDuration(result.Compile.Duration))
			}
			fmt.Println(line + "]")
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if len(results) > 0 {
		fmt.Printf("Lowering took %s in total", strings.TrimSpace(formatDuration(totalLower)))
		if compiled > 0 {
			fmt.Printf(", %s compiled %d sample(s) in %s", filepath.Base(*compiler), compiled, strings.TrimSpace(formatDuration(totalCompile)))
		}
		fmt.Println(".")
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*SampleTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.Sample] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}
	if err := os.WriteFile(*outputJSON, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, *outputJSON, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", *outputJSON)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}
