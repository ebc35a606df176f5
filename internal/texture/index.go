package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// extRank orders formats when several files share a stem. Formats with an
// alpha channel win.
var extRank = map[string]int{
	".ozj": 1, ".jpg": 1, ".jpeg": 1,
	".ozt": 2, ".tga": 2, ".png": 2,
}

// Index maps lowercase texture stems to filesystem paths.
type Index struct {
	entries map[string]string // stem.lower() → full path
}

// BuildIndex scans modelDir and its texture/ and Texture/ subdirectories
// (one level of nesting) for texture files.
func BuildIndex(modelDir string) *Index {
	idx := &Index{entries: make(map[string]string)}

	searchDirs := []string{modelDir}
	entries, _ := os.ReadDir(modelDir)
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), "texture") {
			searchDirs = append(searchDirs, filepath.Join(modelDir, e.Name()))
		}
	}

	for _, dir := range searchDirs {
		files, _ := os.ReadDir(dir)
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			idx.add(filepath.Join(dir, f.Name()))
		}
	}
	return idx
}

func (idx *Index) add(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	rank, ok := extRank[ext]
	if !ok {
		return
	}
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	existing, exists := idx.entries[stem]
	if !exists || rank > extRank[strings.ToLower(filepath.Ext(existing))] {
		idx.entries[stem] = path
	}
}

// ResolvePath returns the filesystem path for a texture name, or ("", false).
// Directory prefixes and the extension in name are ignored.
func (idx *Index) ResolvePath(texName string) (string, bool) {
	texName = strings.ReplaceAll(texName, "\\", "/")
	base := filepath.Base(texName)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	path, ok := idx.entries[stem]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}
