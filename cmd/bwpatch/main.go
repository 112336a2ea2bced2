// This file is part of bwpatch.
//
// bwpatch is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// bwpatch is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with bwpatch.  If not, see <https://www.gnu.org/licenses/>.

// Command bwpatch is the CLI driver for the firmware patch engine. It does
// nothing the engine doesn't already do: select a model, read the input
// file, apply the requested patch tokens, write the output file. Per-patch
// failures are logged and do not stop the run; the output file is still
// written with whatever patches succeeded.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/scooterteam/bwpatch/engine"
	"github.com/scooterteam/bwpatch/logger"
	"github.com/scooterteam/bwpatch/registry"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: bwpatch <model> <infile> <outfile> <patches>\n\n")
	fmt.Fprintf(os.Stderr, "patches is a comma-separated list of tokens, e.g. sls=45,dms=25,chk\n\n")
	fmt.Fprintf(os.Stderr, "known models:\n")
	for _, name := range registry.Names() {
		family, _ := registry.ChipFamily(name)
		fmt.Fprintf(os.Stderr, "  %-10s (%s)\n", name, family)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 4 {
		usage()
		return 2
	}

	model, infile, outfile, patchArg := args[0], args[1], args[2], args[3]

	var patches []string
	if strings.TrimSpace(patchArg) != "" {
		patches = strings.Split(patchArg, ",")
	}

	input, err := os.ReadFile(infile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bwpatch: reading %s: %v\n", infile, err)
		return 1
	}

	output, records, patchErr := engine.PatchFirmware(model, input, patches, false)
	if output == nil {
		fmt.Fprintf(os.Stderr, "bwpatch: %v\n", patchErr)
		return 1
	}

	if err := os.WriteFile(outfile, output, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "bwpatch: writing %s: %v\n", outfile, err)
		return 1
	}

	for _, rec := range records {
		fmt.Printf("%s\n", rec)
	}

	if patchErr != nil {
		fmt.Fprintf(os.Stderr, "bwpatch: one or more patches failed:\n%v\n", patchErr)
	}

	var tail strings.Builder
	logger.Tail(&tail, 200)
	if tail.Len() > 0 {
		fmt.Fprint(os.Stderr, tail.String())
	}

	return 0
}
