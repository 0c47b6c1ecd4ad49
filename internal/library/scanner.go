package library

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"

	"github.com/llehouerou/undertow/internal/item"
)

const numWorkers = 8

// ScanStats holds statistics for a completed scan.
type ScanStats struct {
	Indexed int
}

// Scan walks the given source directories, reads tags from every audio
// file found, and replaces the library index with the result. Files
// whose tags cannot be read are indexed with metadata derived from the
// filename rather than dropped.
func (l *Library) Scan(sources []string) ScanStats {
	files := discoverFiles(sources)

	workCh := make(chan string, len(files))
	resultCh := make(chan item.Item, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range workCh {
				resultCh <- l.readItem(path)
			}
		}()
	}

	go func() {
		for _, f := range files {
			workCh <- f
		}
		close(workCh)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	items := make([]item.Item, 0, len(files))
	for it := range resultCh {
		items = append(items, it)
	}

	l.replace(items)

	stats := ScanStats{Indexed: len(items)}
	l.log.Info().
		Int("sources", len(sources)).
		Int("indexed", stats.Indexed).
		Msg("library scan complete")
	return stats
}

func (l *Library) readItem(path string) item.Item {
	title, artist, album := readTags(path)
	if title == "" {
		title = titleFromFilename(path)
	}
	return item.Local(path, title, artist, album, 0)
}

// readTags extracts basic metadata. Errors degrade to empty fields; the
// file stays playable either way.
func readTags(path string) (title, artist, album string) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", ""
	}
	defer f.Close()

	md, err := tag.ReadFrom(f)
	if err != nil {
		return "", "", ""
	}
	return md.Title(), md.Artist(), md.Album()
}

func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// discoverFiles walks the source directories and returns all audio files
// found. Walk errors are skipped so one unreadable directory does not
// abort the scan.
func discoverFiles(sources []string) []string {
	var files []string
	for _, src := range sources {
		_ = filepath.WalkDir(src, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}
			if d.IsDir() || !IsAudioFile(path) {
				return nil
			}
			files = append(files, path)
			return nil
		})
	}
	return files
}
