package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/playalong-go/internal/catalog"
)

func main() {
	var (
		dir     = flag.String("dir", "assets", "directory holding the song assets")
		out     = flag.String("out", "", "output file (default: <dir>/"+catalog.DefaultOutput+")")
		noSeed  = flag.Bool("no-seed", false, "do not create skeleton metadata for new songs")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if *out == "" {
		*out = filepath.Join(*dir, catalog.DefaultOutput)
	}

	compile := catalog.Rebuild
	if *noSeed {
		compile = catalog.Compile
	}
	songs, err := compile(*dir, *out, logger)
	if err != nil {
		log.Fatal(err)
	}
	for _, s := range songs {
		logger.WithFields(logrus.Fields{"id": s.ID, "parts": len(s.Parts())}).Debug("song")
	}
	fmt.Printf("wrote %d songs to %s\n", len(songs), *out)
}
