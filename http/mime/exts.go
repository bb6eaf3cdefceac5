package mime

import "path/filepath"

var Extension = map[string]MIME{
	".asc":   Plain,
	".txt":   Plain,
	".text":  Plain,
	".pot":   Plain,
	".brf":   Plain,
	".srt":   Plain,
	".jpeg":  JPEG,
	".jpg":   JPEG,
	".html":  HTML,
	".htm":   HTML,
	".shtml": HTML,
}

// ByName guesses the MIME by the file suffix. Suffixes are case-sensitive, anything unknown
// is considered a binary stream.
func ByName(name string) MIME {
	if m, found := Extension[filepath.Ext(name)]; found {
		return m
	}

	return OctetStream
}
