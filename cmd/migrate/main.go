// Command migrate reorganizes an existing archive into the canonical
// domain-partitioned layout, reading each document's frontmatter domain.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var domainRe = regexp.MustCompile(`(?m)^domain:\s*"?([^"\n]+)"?\s*$`)

func main() {
	dryRun := flag.Bool("dry-run", false, "print moves without performing them")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: migrate [--dry-run] <archive-directory>")
	}
	archiveRoot := flag.Arg(0)

	moved, err := repartition(archiveRoot, *dryRun)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Moved %d files\n", moved)
}

// repartition walks the archive and moves each markdown document into
// <root>/<domain>/, as read from its frontmatter. Files already in place
// or without a domain are left alone.
func repartition(archiveRoot string, dryRun bool) (int, error) {
	moved := 0
	err := filepath.WalkDir(archiveRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // continue past unreadable entries
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		domain, err := extractDomain(path)
		if err != nil {
			log.Printf("Skipping %s: %v", path, err)
			return nil
		}
		if domain == "" {
			log.Printf("No domain in %s, skipping", path)
			return nil
		}

		target := filepath.Join(archiveRoot, domain, filepath.Base(path))
		if target == path {
			return nil
		}
		if _, err := os.Stat(target); err == nil {
			log.Printf("Target %s already exists, skipping", target)
			return nil
		}

		log.Printf("Moving %s -> %s", path, target)
		if dryRun {
			moved++
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		if err := os.Rename(path, target); err != nil {
			return fmt.Errorf("moving %s: %w", path, err)
		}
		moved++
		return nil
	})
	return moved, err
}

// extractDomain reads the domain field out of a document's frontmatter.
func extractDomain(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(string(content), "---") {
		return "", nil
	}
	matches := domainRe.FindSubmatch(content)
	if len(matches) < 2 {
		return "", nil
	}
	return strings.TrimSpace(string(matches[1])), nil
}
