// Package filter classifies BMD meshes that are visual effects rather than
// model geometry. Effect overlays (glows, auras, flares) are usually large
// additive billboards, and counting them would shrink the model in the frame.
package filter

import (
	"path/filepath"
	"regexp"
	"strings"

	"asset-thumbnailer/internal/bmd"
)

var gradientRE = regexp.MustCompile(`^(?:mini_)?gra(?:\d|_|$)`)

var effectWords = []string{
	"glow", "flare", "effect", "aura", "shiny", "spark",
	"blur", "energy", "plasma", "shine", "halo", "trail",
	"gradation", "shockwave",
}

// "flame" only counts as a prefix; "box_flame_wood" is a texture, not fire.
var effectPrefixes = []string{"flame"}

// maxBillboardSpan is the largest extent a tiny quad mesh may have and still
// be treated as a sprite.
const maxBillboardSpan = 20

// TextureStem returns the lowercase file stem of a BMD texture path, which
// may use either slash direction.
func TextureStem(texPath string) string {
	p := strings.ToLower(strings.ReplaceAll(texPath, "\\", "/"))
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsEffectMesh reports whether m looks like an effect overlay, either by its
// texture name or because it is a handful of small sprite quads.
func IsEffectMesh(m *bmd.Mesh) bool {
	stem := TextureStem(m.TexPath)
	if stem != "" && stem != "." {
		if gradientRE.MatchString(stem) {
			return true
		}
		for _, w := range effectWords {
			if strings.Contains(stem, w) {
				return true
			}
		}
		for _, p := range effectPrefixes {
			if strings.HasPrefix(stem, p) {
				return true
			}
		}
	}
	return isSprite(m)
}

func isSprite(m *bmd.Mesh) bool {
	if len(m.Verts) == 0 || len(m.Verts) > 8 || len(m.Tris) > 4 {
		return false
	}
	lo, hi := m.Verts[0], m.Verts[0]
	for _, v := range m.Verts[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], v[k])
			hi[k] = max(hi[k], v[k])
		}
	}
	for k := 0; k < 3; k++ {
		if hi[k]-lo[k] > maxBillboardSpan {
			return false
		}
	}
	return true
}
