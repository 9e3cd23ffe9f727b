package frames

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// VideoTask identifies one video's frame directory.
type VideoTask struct {
	Class   string
	VideoID string
	Dir     string
}

// Frame is one ordered image of a video.
type Frame struct {
	Index int
	Name  string
	Path  string
}

// Decode reads and decodes the frame image.
func (f Frame) Decode() (image.Image, error) {
	return DecodeImage(f.Path)
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ScanTasks walks root/<class>/<video_id>/ and returns tasks sorted by class
// then video id. Entries that are not directories are ignored.
func ScanTasks(root string) ([]VideoTask, error) {
	classes, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read frames root: %w", err)
	}
	var tasks []VideoTask
	for _, classEntry := range classes {
		if !classEntry.IsDir() || strings.HasPrefix(classEntry.Name(), ".") {
			continue
		}
		classDir := filepath.Join(root, classEntry.Name())
		videos, err := os.ReadDir(classDir)
		if err != nil {
			return nil, fmt.Errorf("read class dir %s: %w", classDir, err)
		}
		for _, videoEntry := range videos {
			if !videoEntry.IsDir() || strings.HasPrefix(videoEntry.Name(), ".") {
				continue
			}
			tasks = append(tasks, VideoTask{
				Class:   classEntry.Name(),
				VideoID: videoEntry.Name(),
				Dir:     filepath.Join(classDir, videoEntry.Name()),
			})
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Class != tasks[j].Class {
			return tasks[i].Class < tasks[j].Class
		}
		return tasks[i].VideoID < tasks[j].VideoID
	})
	return tasks, nil
}

// ListFrames returns the image file names in dir sorted lexicographically.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load lists the frames of dir and truncates to the first maxFrames when
// maxFrames > 0.
func Load(dir string, maxFrames int) ([]Frame, error) {
	names, err := ListFrames(dir)
	if err != nil {
		return nil, err
	}
	if maxFrames > 0 && len(names) > maxFrames {
		names = names[:maxFrames]
	}
	out := make([]Frame, len(names))
	for i, name := range names {
		out[i] = Frame{Index: i, Name: name, Path: filepath.Join(dir, name)}
	}
	return out, nil
}

// Names returns the source names of frames in order.
func Names(frames []Frame) []string {
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.Name
	}
	return names
}

// DecodeImage decodes a JPEG or PNG file.
func DecodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
