// gen-diagrams renders every example program as Mermaid, ASCII and PNG for
// README documentation. Image nodes carry the status of a real run.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/stepflow/pkg/stepflow"
)

func main() {
	files, err := filepath.Glob(filepath.Join("examples", "*.flow"))
	if err != nil || len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no example programs found under examples/")
		os.Exit(1)
	}

	outDir := filepath.Join("docs", "assets")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", outDir, err)
		os.Exit(1)
	}

	failed := false
	for _, file := range files {
		if err := render(file, outDir); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func render(file, outDir string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	source := string(data)
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	ascii, err := stepflow.Describe(source, stepflow.FormatASCII)
	if err != nil {
		return fmt.Errorf("ascii: %w", err)
	}
	if err := write(outDir, name+"-ascii.txt", []byte(ascii)); err != nil {
		return err
	}
	fmt.Printf("=== %s (ASCII) ===\n%s\n", name, ascii)

	mermaid, err := stepflow.Describe(source, stepflow.FormatMermaid)
	if err != nil {
		return fmt.Errorf("mermaid: %w", err)
	}
	if err := write(outDir, name+"-mermaid.md", []byte("```mermaid\n"+mermaid+"\n```\n")); err != nil {
		return err
	}

	// Partial results still color the steps that ran before a failure.
	rep, err := stepflow.Run(context.Background(), source)
	if rep == nil {
		return fmt.Errorf("run: %w", err)
	}
	png, err := stepflow.DescribeImage(source, rep.Results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: image: %v\n", name, err)
		return nil
	}
	if err := write(outDir, name+".png", png); err != nil {
		return err
	}
	fmt.Printf("=== %s (PNG) ===\nWritten: %s (%d bytes)\n", name, filepath.Join(outDir, name+".png"), len(png))
	return nil
}

func write(dir, name string, data []byte) error {
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}
