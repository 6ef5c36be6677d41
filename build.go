//go:build ignore

// Build script: go run build.go [-target=all|cohort|web|test|clean] [-v]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	module  = "tradecohort"
	distDir = "dist"
)

var binaries = []string{"cohort", "web"}

func main() {
	target := flag.String("target", "all", "all, cohort, web, test or clean")
	verbose := flag.Bool("v", false, "echo go commands and their output")
	flag.Parse()

	began := time.Now()
	var err error
	switch *target {
	case "all":
		for _, name := range binaries {
			if err = build(name, *verbose); err != nil {
				break
			}
		}
	case "cohort", "web":
		err = build(*target, *verbose)
	case "test":
		args := []string{"test", "-race"}
		if *verbose {
			args = append(args, "-v")
		}
		err = run(true, append(args, "./...")...)
	case "clean":
		err = os.RemoveAll(distDir)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "\033[31m%s failed:\033[0m %v\n", *target, err)
		os.Exit(1)
	}
	fmt.Printf("\033[32m%s done\033[0m in %s\n", *target, time.Since(began).Round(time.Millisecond))
}

func build(name string, verbose bool) error {
	out := filepath.Join(distDir, name)
	if runtime.GOOS == "windows" {
		out += ".exe"
	}

	stamp := func(key, value string) string {
		return fmt.Sprintf("-X %s/pkg/contracts.%s=%s", module, key, value)
	}
	ldflags := strings.Join([]string{
		"-s -w",
		stamp("BuildTime", time.Now().UTC().Format(time.RFC3339)),
		stamp("GitCommit", revision()),
	}, " ")

	args := []string{"build", "-ldflags", ldflags, "-o", out}
	if verbose {
		args = append(args, "-v")
	}
	if err := run(verbose, append(args, "./cmd/"+name)...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if fi, err := os.Stat(out); err == nil {
		fmt.Printf("%s  %.1f MB\n", out, float64(fi.Size())/(1<<20))
	}
	return nil
}

func run(verbose bool, args ...string) error {
	cmd := exec.Command("go", args...)
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Println("go", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	return cmd.Run()
}

func revision() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
