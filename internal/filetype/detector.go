// Package filetype sniffs uploaded content by magic bytes so the service
// never trusts a filename. Only SVG input is accepted: plain, gzipped
// (svgz) or generic XML that turns out to carry an svg root.
package filetype

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// FileInfo describes detected input content.
type FileInfo struct {
	MIMEType   string
	Extension  string
	Compressed bool // input arrived gzip-wrapped (svgz)
	Supported  bool
}

// Detector classifies uploaded bytes.
type Detector struct{}

func New() *Detector {
	return &Detector{}
}

// maxDecompressed caps gzip expansion so a tiny svgz bomb cannot
// exhaust memory.
const maxDecompressed = 256 << 20

// Detect inspects data and, for svgz, returns the decompressed SVG
// bytes alongside the classification. The returned payload is the
// content downstream stages should parse.
func (d *Detector) Detect(data []byte) (FileInfo, []byte, error) {
	mtype := mimetype.Detect(data)
	info := FileInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}

	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Msg("detected input type")

	if mtype.Is("application/gzip") {
		raw, err := gunzip(data)
		if err != nil {
			return info, nil, fmt.Errorf("decompress svgz: %w", err)
		}
		inner := mimetype.Detect(raw)
		if !isSVG(inner, raw) {
			return info, nil, fmt.Errorf("gzip payload is %s, not SVG", inner.String())
		}
		info.MIMEType = inner.String()
		info.Extension = ".svgz"
		info.Compressed = true
		info.Supported = true
		return info, raw, nil
	}

	if isSVG(mtype, data) {
		info.Extension = ".svg"
		info.Supported = true
		return info, data, nil
	}

	return info, nil, fmt.Errorf("unsupported input type %s", info.MIMEType)
}

// isSVG accepts the dedicated SVG type and generic XML whose root
// element is svg. mimetype reports image/svg+xml only when the svg tag
// appears near the top, so documents with long DOCTYPE or comment
// preambles fall through to the XML check.
func isSVG(mtype *mimetype.MIME, data []byte) bool {
	if mtype.Is("image/svg+xml") {
		return true
	}
	if mtype.Is("text/xml") || mtype.Is("application/xml") {
		return bytes.Contains(data[:min(len(data), 4096)], []byte("<svg"))
	}
	return false
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, maxDecompressed+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxDecompressed {
		return nil, fmt.Errorf("decompressed content exceeds %d bytes", maxDecompressed)
	}
	return raw, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
