package tiger

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/countymap/internal/fetcher"
)

// Download fetches a boundary ZIP archive into destDir, extracts it next to
// the archive and returns the path of the .shp file. An archive already
// present in destDir is reused.
func Download(ctx context.Context, f fetcher.Fetcher, url, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "tiger.download"),
		zap.String("url", url),
	)

	zipName := url[strings.LastIndex(url, "/")+1:]
	if !strings.HasSuffix(strings.ToLower(zipName), ".zip") {
		return "", eris.Errorf("tiger: %s is not a ZIP archive", url)
	}
	zipPath := filepath.Join(destDir, zipName)

	n, err := f.DownloadToFile(ctx, url, zipPath)
	if err != nil {
		return "", eris.Wrap(err, "tiger: download boundary archive")
	}
	log.Info("boundary archive ready", zap.String("path", zipPath), zap.Int64("bytes", n))

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, filepath.Ext(zipName)))
	paths, err := fetcher.ExtractZIP(zipPath, extractDir)
	if err != nil {
		return "", eris.Wrap(err, "tiger: extract boundary archive")
	}

	shpPath, err := fetcher.FindByExt(paths, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "tiger: find .shp file")
	}
	if _, err := fetcher.FindByExt(paths, ".dbf"); err != nil {
		return "", eris.Wrap(err, "tiger: archive has no attribute table")
	}
	return shpPath, nil
}
