package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/seekerror/logw"

	"github.com/marlinchess/marlin/internal/engine"
	"github.com/marlinchess/marlin/internal/uci"
)

var (
	hash    = flag.Int("hash", 64, "Transposition table size in MiB")
	threads = flag.Int("threads", runtime.GOMAXPROCS(0), "Number of search threads")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: marlin [options]

MARLIN is a UCI chess engine.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	eng := engine.NewEngine(*hash, *threads)
	logw.Infof(ctx, "marlin ready: hash=%dMiB threads=%d", *hash, *threads)

	driver := uci.NewDriver(eng, os.Stdout)
	driver.Run(ctx, os.Stdin)
}
