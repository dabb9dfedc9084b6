// Package discover finds C sources under a directory.
package discover

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pragcc/pragcc/internal/lang"
)

// IgnoreFileName holds extra ignore patterns, one per line.
const IgnoreFileName = ".pragccignore"

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".git": true, ".hg": true, ".idea": true,
	".svn": true, ".tmp": true, ".vs": true, ".vscode": true,
	"bin": true, "build": true, "CMakeFiles": true, "coverage": true,
	"dist": true, "node_modules": true, "obj": true, "out": true,
	"target": true, "temp": true, "tmp": true, "vendor": true,
}

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to root, slash separated
	Language lang.Language // detected language
}

// Options configures file discovery.
type Options struct {
	IgnoreFile   string   // path to an ignore file (default: <root>/.pragccignore)
	ExcludeDirs  []string // extra directory patterns
	SkipPrefixes []string // file name prefixes of generated output, e.g. omp_
}

func shouldSkipDir(name, rel string, extraIgnore []string) bool {
	if IGNORE_PATTERNS[name] {
		return true
	}
	for _, pattern := range extraIgnore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func hasPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Discover walks root and returns every C source that is not itself
// annotated output. Results are in lexical path order.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	ignPath := opts.IgnoreFile
	if ignPath == "" {
		ignPath = filepath.Join(root, IgnoreFileName)
	}
	extraIgnore, _ := loadIgnoreFile(ignPath)
	extraIgnore = append(extraIgnore, opts.ExcludeDirs...)

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name(), filepath.ToSlash(rel), extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}

		l, ok := lang.LanguageForExtension(filepath.Ext(path))
		if !ok || hasPrefix(d.Name(), opts.SkipPrefixes) {
			return nil
		}
		files = append(files, FileInfo{
			Path:     path,
			RelPath:  filepath.ToSlash(rel),
			Language: l,
		})
		return nil
	})
	return files, err
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
