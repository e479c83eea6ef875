package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"clipforge/internal/services"
)

// imageExtensions are tried in order when pairing a line with its image.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Unit is one line of narration paired with its image. Index is 1-based and
// matches the image file name.
type Unit struct {
	Index     int
	Text      string
	ImagePath string
}

// Batch is the ordered input of a run.
type Batch struct {
	Units []Unit
}

// Lines returns the source text of every unit in order.
func (b Batch) Lines() []string {
	lines := make([]string, len(b.Units))
	for i, unit := range b.Units {
		lines[i] = unit.Text
	}
	return lines
}

// LoadBatch reads textFile and pairs each non-empty trimmed line i (1-based)
// with imagesDir/<i>.<ext>.
func LoadBatch(textFile, imagesDir string) (Batch, error) {
	file, err := os.Open(textFile)
	if err != nil {
		return Batch{}, services.Wrap(services.ErrValidation, "pipeline", "load batch", "open text file", err)
	}
	defer file.Close()

	var units []Unit
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		index := len(units) + 1
		image, err := findImage(imagesDir, index)
		if err != nil {
			return Batch{}, err
		}
		units = append(units, Unit{Index: index, Text: line, ImagePath: image})
	}
	if err := scanner.Err(); err != nil {
		return Batch{}, services.Wrap(services.ErrValidation, "pipeline", "load batch", "read text file", err)
	}
	if len(units) == 0 {
		return Batch{}, services.Wrap(services.ErrValidation, "pipeline", "load batch", textFile+" has no lines", nil)
	}
	return Batch{Units: units}, nil
}

func findImage(dir string, index int) (string, error) {
	base := strconv.Itoa(index)
	for _, ext := range imageExtensions {
		candidate := filepath.Join(dir, base+ext)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrValidation, "pipeline", "load batch", candidate, err)
		}
	}
	return "", services.Wrap(services.ErrValidation, "pipeline", "load batch",
		fmt.Sprintf("no image for line %d (expected %s/%s.{png,jpg,jpeg,webp})", index, dir, base), nil)
}
