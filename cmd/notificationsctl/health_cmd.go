package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

func runHealth(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var baseURL string
	var detailed bool
	var timeout time.Duration
	fs.StringVar(&baseURL, "url", "http://localhost:8080", "service base URL")
	fs.BoolVar(&detailed, "detailed", false, "run the detailed dependency check")
	fs.DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	path := "/health/"
	if detailed {
		path = "/health/detailed/"
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+path, nil)
	if err != nil {
		fmt.Fprintf(stderr, "build request: %v\n", err)
		return 1
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "health request failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if _, err := io.Copy(stdout, io.LimitReader(resp.Body, 1<<20)); err != nil {
		fmt.Fprintf(stderr, "read response: %v\n", err)
		return 1
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "service reported status %d\n", resp.StatusCode)
		return 2
	}
	return 0
}
