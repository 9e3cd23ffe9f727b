package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"framediff/internal/results"
)

// WriteFrame writes a small solid PNG whose shade is derived from seed.
func WriteFrame(t testing.TB, path string, seed int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	shade := uint8(seed * 37 % 256)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: 255 - shade, B: shade / 2, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// WriteVideoFrames creates root/class/videoID with count frames named
// frame_000.png, frame_001.png, ... and returns the directory.
func WriteVideoFrames(t testing.TB, root, class, videoID string, count int) string {
	t.Helper()

	dir := filepath.Join(root, class, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for i := 0; i < count; i++ {
		WriteFrame(t, filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i)), i)
	}
	return dir
}

// WriteRecord saves rec into a results store rooted at root.
func WriteRecord(t testing.TB, root string, rec results.Record) string {
	t.Helper()

	path, err := results.NewStore(root).Save(rec)
	if err != nil {
		t.Fatalf("save record: %v", err)
	}
	return path
}

// WriteRawRecord writes arbitrary JSON to root/class/videoID.json.
func WriteRawRecord(t testing.TB, root, class, videoID, content string) string {
	t.Helper()

	path := filepath.Join(root, class, videoID+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
