// Command migrate-banks imports every bank pack found in a directory into a
// spark-prompt library. It lists what each pack adds and overwrites before
// asking for confirmation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/config"
	"github.com/dpshade/spark-prompt/internal/logging"
	"github.com/dpshade/spark-prompt/internal/service"
)

func main() {
	dir := flag.String("dir", "", "library directory (default ~/.spark-prompt)")
	yes := flag.Bool("yes", false, "import without asking for confirmation")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate-banks [flags] <pack-dir>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*dir, flag.Arg(0), *yes, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dataDir, packDir string, yes, debug bool) error {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return err
	}
	logger := logging.Must(debug || cfg.Debug)
	defer func() { _ = logger.Sync() }()

	svc, err := service.NewService(cfg, logger)
	if err != nil {
		return err
	}
	if err := svc.InitLibrary(); err != nil {
		return err
	}
	if err := svc.LoadLibrary(context.Background()); err != nil {
		return err
	}

	packs, err := findPacks(packDir)
	if err != nil {
		return err
	}
	if len(packs) == 0 {
		fmt.Println("No bank packs found - nothing to import")
		return nil
	}

	fmt.Printf("Found %d bank packs:\n", len(packs))
	var valid []string
	for _, path := range packs {
		_, preview, err := svc.PreviewBankPack(path)
		if err != nil {
			logger.Warn("skipping unreadable pack", zap.String("path", path), zap.Error(err))
			fmt.Printf("  - %s: skipped (%v)\n", filepath.Base(path), err)
			continue
		}
		valid = append(valid, path)
		fmt.Printf("  - %s (%s): %d banks", preview.Name, filepath.Base(path), len(preview.Keys))
		if len(preview.Conflicts) > 0 {
			fmt.Printf(", overwrites %s", strings.Join(preview.Conflicts, ", "))
		}
		fmt.Println()
	}

	if len(valid) == 0 {
		return fmt.Errorf("no readable bank packs in %s", packDir)
	}

	if !yes {
		fmt.Print("\nProceed with import? (y/N): ")
		var response string
		_, _ = fmt.Scanln(&response)
		if r := strings.ToLower(strings.TrimSpace(response)); r != "y" && r != "yes" {
			fmt.Println("Import cancelled")
			return nil
		}
	}

	imported := 0
	for _, path := range valid {
		result, err := svc.ImportBankPack(path)
		if err != nil {
			fmt.Printf("Failed to import %s: %v\n", filepath.Base(path), err)
			continue
		}
		imported++
		fmt.Printf("Imported %s (%d banks)\n", result.Name, len(result.Keys))
	}

	fmt.Printf("\nImport complete: %d/%d packs imported into %s\n", imported, len(valid), cfg.DataDir())
	return nil
}

// findPacks lists the YAML and JSON files directly inside dir
func findPacks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack directory: %w", err)
	}
	var packs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			packs = append(packs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(packs)
	return packs, nil
}
