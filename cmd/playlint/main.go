package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mverkaik/stagehand/internal/model"
)

// playlint loads a playlist document, reports every validation finding,
// and exits non-zero if any were found. Intended for presentation
// authors and CI pipelines.
func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: playlint <playlist.yaml> [...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range flag.Args() {
		playlist, err := model.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exitCode = 1
			continue
		}

		findings := model.Validate(playlist)
		for _, f := range findings {
			fmt.Printf("%s: %s\n", path, f)
		}
		if len(findings) > 0 {
			exitCode = 1
			continue
		}

		fmt.Printf("%s: ok (%d subjects, %d media items)\n", path, len(playlist.Subjects), len(playlist.Media))
	}
	os.Exit(exitCode)
}
