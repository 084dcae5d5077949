package clientapp

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"strings"
	"unicode"

	"github.com/gorilla/mux"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	avatarGlyphCanvas = 24
	avatarSize        = 80
)

var avatarBackground = color.RGBA{R: 0x05, G: 0x96, B: 0x69, A: 0xff}

func (s *server) avatarImage(w http.ResponseWriter, r *http.Request) {
	text, ok := sanitizeAvatarText(mux.Vars(r)["initials"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	data, err := renderInitialsAvatar(text, avatarSize)
	if err != nil {
		http.Error(w, "unable to render avatar", http.StatusInternalServerError)
		logRequestf(r, "avatar render failed: %v", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// sanitizeAvatarText keeps at most two letters or digits. The basic font only
// covers ASCII, so anything else is drawn as a placeholder.
func sanitizeAvatarText(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "_" {
		return "", true
	}
	var b strings.Builder
	count := 0
	for _, r := range raw {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", false
		}
		if r > unicode.MaxASCII {
			r = '?'
		}
		b.WriteRune(unicode.ToUpper(r))
		count++
		if count > 2 {
			return "", false
		}
	}
	return b.String(), count > 0
}

// renderInitialsAvatar draws text on a small canvas with the fixed 7x13 face
// and scales it up, which keeps the glyph edges crisp.
func renderInitialsAvatar(text string, size int) ([]byte, error) {
	face := basicfont.Face7x13
	canvas := image.NewRGBA(image.Rect(0, 0, avatarGlyphCanvas, avatarGlyphCanvas))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: avatarBackground}, image.Point{}, draw.Src)

	if text != "" {
		metrics := face.Metrics()
		width := font.MeasureString(face, text).Ceil()
		height := (metrics.Ascent + metrics.Descent).Ceil()
		drawer := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(color.White),
			Face: face,
			Dot: fixed.P(
				(avatarGlyphCanvas-width)/2,
				(avatarGlyphCanvas-height)/2+metrics.Ascent.Ceil(),
			),
		}
		drawer.DrawString(text)
	}

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
	circleMask(out)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func circleMask(img *image.RGBA) {
	b := img.Bounds()
	r := float64(b.Dx()) / 2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x-b.Min.X) + 0.5 - r
			dy := float64(y-b.Min.Y) + 0.5 - r
			if dx*dx+dy*dy > r*r {
				img.SetRGBA(x, y, color.RGBA{})
			}
		}
	}
}
