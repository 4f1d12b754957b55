// Command regalloc-mockgen generates a concurrency-safe test double for one
// exported interface, for use by internal/regalloc's _test.go files.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mipalloc/mipalloc/internal/mockgen"
)

func main() {
	var (
		iface   string
		genPkg  string
		out     string
		sources string
		tags    string
	)
	flag.StringVar(&iface, "interface", "", "interface name to mock (required)")
	flag.StringVar(&genPkg, "pkg", "", "generated package name (default: <src pkg>mock)")
	flag.StringVar(&out, "out", "", "destination file path (writes to file when set)")
	flag.StringVar(&sources, "source", "./...", "source package patterns (comma-separated)")
	flag.StringVar(&tags, "tags", "", "build tags (comma-separated)")
	flag.Parse()

	if strings.TrimSpace(iface) == "" {
		fmt.Fprintln(os.Stderr, "Error: -interface is required")
		fmt.Fprintln(os.Stderr, "Usage: regalloc-mockgen -interface <name> [-pkg <generated package>] [-out <destination>] [-source <patterns,comma-separated>] [-tags <build-tags,comma-separated>]")
		os.Exit(2)
	}

	var src []string
	for _, p := range strings.Split(sources, ",") {
		if p = strings.TrimSpace(p); p != "" {
			src = append(src, p)
		}
	}
	var tagSlice []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tagSlice = append(tagSlice, t)
		}
	}

	code, err := mockgen.Generate(mockgen.GenOptions{
		InterfaceName:  iface,
		PackageName:    genPkg,
		Destination:    out,
		SourcePatterns: src,
		BuildTags:      tagSlice,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if out != "" {
		fmt.Fprintln(os.Stdout, "Mock generated:", out)
		return
	}
	fmt.Fprintln(os.Stdout, code)
}
