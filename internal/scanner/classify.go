package scanner

import (
	"path/filepath"
	"strings"
)

// extensionKind is one row of the shared extension table: either a known
// content category, or a junk marker. Classify and FindJunk both read it.
type extensionKind struct {
	category Category
	junk     bool
}

func known(c Category) extensionKind { return extensionKind{category: c} }

var junkMarker = extensionKind{category: CategoryOther, junk: true}

var extensionTable = map[string]extensionKind{
	// images
	".jpg": known(CategoryImage), ".jpeg": known(CategoryImage), ".png": known(CategoryImage),
	".gif": known(CategoryImage), ".bmp": known(CategoryImage), ".webp": known(CategoryImage),
	".heic": known(CategoryImage), ".heif": known(CategoryImage), ".svg": known(CategoryImage),
	".tif": known(CategoryImage), ".tiff": known(CategoryImage), ".raw": known(CategoryImage),
	".dng": known(CategoryImage),

	// video
	".mp4": known(CategoryVideo), ".mkv": known(CategoryVideo), ".mov": known(CategoryVideo),
	".avi": known(CategoryVideo), ".webm": known(CategoryVideo), ".3gp": known(CategoryVideo),
	".m4v": known(CategoryVideo), ".wmv": known(CategoryVideo), ".flv": known(CategoryVideo),

	// audio
	".mp3": known(CategoryAudio), ".wav": known(CategoryAudio), ".flac": known(CategoryAudio),
	".aac": known(CategoryAudio), ".ogg": known(CategoryAudio), ".m4a": known(CategoryAudio),
	".opus": known(CategoryAudio), ".wma": known(CategoryAudio), ".amr": known(CategoryAudio),

	// documents
	".pdf": known(CategoryDocument), ".doc": known(CategoryDocument), ".docx": known(CategoryDocument),
	".xls": known(CategoryDocument), ".xlsx": known(CategoryDocument), ".ppt": known(CategoryDocument),
	".pptx": known(CategoryDocument), ".txt": known(CategoryDocument), ".rtf": known(CategoryDocument),
	".odt": known(CategoryDocument), ".ods": known(CategoryDocument), ".odp": known(CategoryDocument),
	".csv": known(CategoryDocument), ".epub": known(CategoryDocument), ".md": known(CategoryDocument),

	// installer packages
	".apk": known(CategoryApk), ".xapk": known(CategoryApk), ".apks": known(CategoryApk),
	".aab": known(CategoryApk),

	// archives
	".zip": known(CategoryArchive), ".rar": known(CategoryArchive), ".7z": known(CategoryArchive),
	".tar": known(CategoryArchive), ".gz": known(CategoryArchive), ".tgz": known(CategoryArchive),
	".bz2": known(CategoryArchive), ".xz": known(CategoryArchive), ".zst": known(CategoryArchive),

	// temp, log, backup and partial-download markers
	".tmp": junkMarker, ".temp": junkMarker, ".log": junkMarker, ".bak": junkMarker,
	".old": junkMarker, ".crdownload": junkMarker, ".part": junkMarker, ".partial": junkMarker,
	".download": junkMarker, ".dmp": junkMarker, ".swp": junkMarker, ".thumb": junkMarker,
	".thumbnails": junkMarker,
}

// junkSegments are directory names that mark everything beneath them as junk
var junkSegments = map[string]bool{
	"cache":       true,
	".cache":      true,
	"caches":      true,
	"temp":        true,
	"tmp":         true,
	".tmp":        true,
	"thumbnails":  true,
	".thumbnails": true,
	"thumbs":      true,
}

// downloadsSegments are directory names treated as a downloads folder
var downloadsSegments = map[string]bool{
	"download":  true,
	"downloads": true,
}

// Classify maps a file to its category. ext may be given with or without
// the leading dot; matching is case-insensitive. Files with no recognized
// extension under a downloads directory are CategoryDownload, everything
// else falls back to CategoryOther.
func Classify(path, ext string) Category {
	if kind, ok := lookupExtension(ext); ok && !kind.junk {
		return kind.category
	}
	if underSegment(path, downloadsSegments) {
		return CategoryDownload
	}
	return CategoryOther
}

// IsKnownType reports whether ext names a recognized media, document,
// archive or installer type.
func IsKnownType(ext string) bool {
	kind, ok := lookupExtension(ext)
	return ok && !kind.junk
}

// IsJunkExtension reports whether ext is a temp, log, backup or
// partial-download marker.
func IsJunkExtension(ext string) bool {
	kind, ok := lookupExtension(ext)
	return ok && kind.junk
}

// HasJunkSegment reports whether any directory component of path is a
// cache, temp or thumbnail directory.
func HasJunkSegment(path string) bool {
	return underSegment(path, junkSegments)
}

// HasJunkSegmentWithin is HasJunkSegment limited to the directories below
// root. Folders above the scan root never make a file junk; a path outside
// root is checked whole.
func HasJunkSegmentWithin(root, path string) bool {
	if root == "" || !PathWithin(root, path) {
		return HasJunkSegment(path)
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return HasJunkSegment(path)
	}
	return underSegment(rel, junkSegments)
}

func lookupExtension(ext string) (extensionKind, bool) {
	if ext == "" {
		return extensionKind{}, false
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	kind, ok := extensionTable[ext]
	return kind, ok
}

// underSegment checks the directory components of path, not the file name.
func underSegment(path string, segments map[string]bool) bool {
	dir := filepath.ToSlash(filepath.Dir(path))
	for _, part := range strings.Split(dir, "/") {
		if segments[strings.ToLower(part)] {
			return true
		}
	}
	return false
}
