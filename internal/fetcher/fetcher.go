// Package fetcher downloads county map inputs and reads the delimited-text
// and spreadsheet tables they ship as.
package fetcher

import (
	"context"
)

// Fetcher downloads remote inputs to local files.
type Fetcher interface {
	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	// An existing non-empty file at path is reused and reported as 0 bytes.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
