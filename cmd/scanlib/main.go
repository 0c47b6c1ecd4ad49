// Command scanlib scans the configured library sources and prints the
// resulting index. Useful for checking what the player will see without
// starting it.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/undertow/internal/config"
	"github.com/llehouerou/undertow/internal/library"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	sources := cfg.LibrarySources
	if len(os.Args) > 1 {
		sources = os.Args[1:]
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "no library sources configured, pass directories as arguments")
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	lib := library.New(log)
	start := time.Now()
	stats := lib.Scan(sources)

	for _, it := range lib.Items() {
		fmt.Printf("%s\t%s\t%s\t%s\n", it.Artist, it.Album, it.Title, it.Source.Path)
	}
	fmt.Fprintf(os.Stderr, "%d items indexed in %s\n", stats.Indexed, time.Since(start).Round(time.Millisecond))
}
