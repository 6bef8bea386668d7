package main

import (
	"fmt"
	"io"
	"strings"
)

const projectURL = "https://github.com/bbeckley-hub/SwiftAlign"

var rule = strings.Repeat("=", 60)

func printBanner(w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "=== SwiftAlign: Hybrid MSA Tool %s ===\n", version)
	fmt.Fprintln(w, "GitHub: "+projectURL)
	fmt.Fprintln(w, rule)
}

func printFooter(w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SwiftAlign run complete!")
	fmt.Fprintln(w, "If you use SwiftAlign in your research, please cite:")
	fmt.Fprintln(w, "Brown, B. (2025). SwiftAlign: Hybrid multiple sequence alignment combining MAFFT + MUSCLE.")
	fmt.Fprintln(w, "GitHub: "+projectURL)
	fmt.Fprintln(w, rule)
}
