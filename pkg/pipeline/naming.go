package pipeline

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"
)

// fsUnsafeChars are replaced to keep names valid on FAT and ext filesystems.
const fsUnsafeChars = `<>:"/\|?*;`

const maxFileNameLength = 255

var fsReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(fsUnsafeChars))
	for _, r := range fsUnsafeChars {
		pairs = append(pairs, string(r), "_")
	}

	return strings.NewReplacer(pairs...)
}()

// clamp cuts s to at most n bytes without splitting a multi-byte rune.
func clamp(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}

// safeName turns s into a file name: unsafe characters become underscores, a leading
// dot is replaced so the file is not hidden, and the length is clamped.
func safeName(s string) string {
	if strings.HasPrefix(s, ".") {
		s = "_" + s[1:]
	}

	return fsReplacer.Replace(clamp(s, maxFileNameLength))
}

// ArtifactFileName returns the deterministic bundle name of a stage instance.
// A name too long for the filesystem is cut and suffixed with a hash of the full
// name, so values differing only past the cut still get distinct bundles.
func ArtifactFileName(artifact, param string) string {
	const ext = ".tar.gz"

	full := fsReplacer.Replace(artifact + "-" + param)
	if strings.HasPrefix(full, ".") {
		full = "_" + full[1:]
	}
	if len(full)+len(ext) <= maxFileNameLength {
		return full + ext
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(full))
	suffix := fmt.Sprintf("-%08x", h.Sum32())

	return clamp(full, maxFileNameLength-len(ext)-len(suffix)) + suffix + ext
}
