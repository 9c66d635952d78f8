package core

import (
	"fmt"
	"path"
	"strings"
)

// splitPageKey names page n of a multi-page upload.
// "raw/deed.tif" -> "raw/deed_SPLITPAGE_2.tif"
func splitPageKey(key string, pageNum int) string {
	return fmt.Sprintf("%s_SPLITPAGE_%d.tif", trimExtension(key), pageNum)
}

// modifiedKey names the re-saved copy of a single-page upload. Pages are always written
// as TIFF, so non-TIFF extensions become ".tif".
func modifiedKey(key string) string {
	ext := path.Ext(key)
	switch strings.ToLower(ext) {
	case ".tif", ".tiff":
	default:
		ext = ".tif"
	}
	return trimExtension(key) + "_MODIFIED" + ext
}

func trimExtension(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}
