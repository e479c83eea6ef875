package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"path/filepath"
	"strconv"
	"strings"
)

// Fingerprint is the lowercase hex SHA-256 digest naming one artifact.
type Fingerprint string

// String returns the hex digest.
func (f Fingerprint) String() string { return string(f) }

// Short returns the first 12 characters for log lines.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Valid reports whether f looks like a digest produced by Of.
func (f Fingerprint) Valid() bool {
	if len(f) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(string(f))
	return err == nil && strings.ToLower(string(f)) == string(f)
}

const (
	tagString byte = iota + 1
	tagBytes
	tagInt
	tagFloat
	tagList
)

// Field is one typed input to a fingerprint.
type Field struct {
	tag     byte
	payload []byte
	items   []Field
}

func String(value string) Field { return Field{tag: tagString, payload: []byte(value)} }

func Bytes(value []byte) Field { return Field{tag: tagBytes, payload: value} }

func Int(value int64) Field { return Field{tag: tagInt, payload: []byte(strconv.FormatInt(value, 10))} }

// Float encodes value in the shortest representation that round-trips, so 1.5
// and 1.50 fingerprint identically.
func Float(value float64) Field {
	return Field{tag: tagFloat, payload: []byte(strconv.FormatFloat(value, 'g', -1, 64))}
}

// Strings encodes an ordered list; ["ab","c"] and ["a","bc"] differ.
func Strings(values []string) Field {
	items := make([]Field, len(values))
	for i, value := range values {
		items[i] = String(value)
	}
	return Field{tag: tagList, items: items}
}

// Of hashes fields in order. Each field is framed as a one-byte type tag and an
// 8-byte big-endian length ahead of its payload, so no two distinct field lists
// share an encoding.
func Of(fields ...Field) Fingerprint {
	h := sha256.New()
	writeFields(h, fields)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

func writeFields(h hash.Hash, fields []Field) {
	var header [9]byte
	for _, field := range fields {
		header[0] = field.tag
		if field.tag == tagList {
			binary.BigEndian.PutUint64(header[1:], uint64(len(field.items)))
			h.Write(header[:])
			writeFields(h, field.items)
			continue
		}
		binary.BigEndian.PutUint64(header[1:], uint64(len(field.payload)))
		h.Write(header[:])
		h.Write(field.payload)
	}
}

// Audio fingerprints a narration request.
func Audio(text, voice string) Fingerprint {
	return Of(String("audio"), String(text), String(voice))
}

// Video fingerprints a zoom-pan clip from raw image bytes, so renaming or moving
// the image still hits the cache.
// The frame size is part of the key because concat needs every clip at one size.
func Video(image []byte, peakScale float64, clipSeconds, fps, width, height int) Fingerprint {
	return Of(String("video"), Bytes(image), Float(peakScale), Int(int64(clipSeconds)), Int(int64(fps)),
		Int(int64(width)), Int(int64(height)))
}

// Merge fingerprints a merged clip from the names of its inputs. Names are valid
// keys only because they are fingerprints themselves.
func Merge(audioName, videoName string) Fingerprint {
	return Of(String("merge"), String(audioName), String(videoName))
}

// Concat fingerprints the final video from its ordered clip names.
func Concat(names []string) Fingerprint {
	return Of(String("concat"), Strings(names))
}

// NameOf returns the artifact name of path: its base name without extension.
func NameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
