// Package forensics implements the file-analysis tool: metadata
// extraction for arbitrary files (with PDF-aware detail) and
// printable-string recovery from raw memory dumps.
package forensics

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"recontk/internal/config"
	"recontk/internal/querycache"
	"recontk/internal/toolkit"
)

// ToolName is the registry identifier.
const ToolName = "forensics"

// Metadata is the record produced for a file target.
type Metadata struct {
	Path        string `json:"path"`
	SizeBytes   int64  `json:"size_bytes"`
	Modified    string `json:"modified"`
	ContentType string `json:"content_type"`
	SHA1        string `json:"sha1"`
	SHA256      string `json:"sha256"`

	// PDF-only fields.
	PDF       bool `json:"pdf"`
	PDFPages  int  `json:"pdf_pages,omitempty"`
	PDFValid  bool `json:"pdf_valid,omitempty"`
	Encrypted bool `json:"encrypted,omitempty"`
}

// DumpReport summarizes printable strings recovered from a dump.
type DumpReport struct {
	Path         string   `json:"path"`
	SizeBytes    int64    `json:"size_bytes"`
	StringCount  int      `json:"string_count"`
	Sample       []string `json:"sample,omitempty"`
	MinRunLength int      `json:"min_run_length"`
}

// Tool is the forensics tool.
type Tool struct {
	*toolkit.Base
}

// New builds the tool.
func New(cfg *config.Config, logger *slog.Logger, recorder toolkit.Recorder) *Tool {
	t := &Tool{}
	cache := querycache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	t.Base = toolkit.NewBase(ToolName, logger, recorder, cache, map[string]toolkit.Handler{
		"metadata":    {Call: t.metadata},
		"memory_dump": {Key: memoryDumpKey, Call: t.memoryDump},
	})
	return t
}

func memoryDumpKey(target string, opts toolkit.Options) string {
	return toolkit.Fingerprint("memory_dump", target,
		"min_length="+strconv.Itoa(minRunLength(opts)))
}

func (t *Tool) metadata(_ context.Context, target string, _ toolkit.Options) (any, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, toolkit.ProviderFailuref("Metadata analysis failed for %s: %v", target, err)
	}
	if info.IsDir() {
		return nil, toolkit.ProviderFailuref("Metadata analysis failed for %s: is a directory", target)
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, toolkit.ProviderFailuref("Metadata analysis failed for %s: %v", target, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	head = head[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, toolkit.ProviderFailuref("Metadata analysis failed for %s: %v", target, err)
	}

	h1 := sha1.New()
	h256 := sha256.New()
	if _, err := io.Copy(io.MultiWriter(h1, h256), f); err != nil {
		return nil, toolkit.ProviderFailuref("Metadata analysis failed for %s: %v", target, err)
	}

	md := &Metadata{
		Path:        target,
		SizeBytes:   info.Size(),
		Modified:    info.ModTime().UTC().Format(time.RFC3339),
		ContentType: http.DetectContentType(head),
		SHA1:        hex.EncodeToString(h1.Sum(nil)),
		SHA256:      hex.EncodeToString(h256.Sum(nil)),
	}

	if isPDF(target, head) {
		md.PDF = true
		fillPDFInfo(target, md)
	}
	return md, nil
}

func isPDF(path string, head []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return true
	}
	return len(head) >= 5 && string(head[:5]) == "%PDF-"
}

// fillPDFInfo enriches the record via pdfcpu. PDF-level failures are
// recorded as an invalid document rather than failing the whole
// metadata operation.
func fillPDFInfo(path string, md *Metadata) {
	conf := model.NewDefaultConfiguration()
	if err := api.ValidateFile(path, conf); err != nil {
		md.PDFValid = false
		return
	}
	md.PDFValid = true
	if pages, err := api.PageCountFile(path); err == nil {
		md.PDFPages = pages
	}
}

const (
	minStringRun = 6
	maxSample    = 50
)

// minRunLength resolves the effective min_length option. The cache key
// uses the same resolution so equivalent requests share an entry.
func minRunLength(opts toolkit.Options) int {
	minRun := opts.Int("min_length", minStringRun)
	if minRun < 1 {
		minRun = minStringRun
	}
	return minRun
}

func (t *Tool) memoryDump(_ context.Context, target string, opts toolkit.Options) (any, error) {
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, toolkit.ProviderFailuref("Memory dump analysis failed for %s: %v", target, err)
	}

	minRun := minRunLength(opts)

	report := &DumpReport{Path: target, SizeBytes: int64(len(data)), MinRunLength: minRun}
	var run []byte
	flush := func() {
		if len(run) >= minRun {
			report.StringCount++
			if len(report.Sample) < maxSample {
				report.Sample = append(report.Sample, string(run))
			}
		}
		run = run[:0]
	}
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			run = append(run, b)
			continue
		}
		flush()
	}
	flush()
	return report, nil
}
