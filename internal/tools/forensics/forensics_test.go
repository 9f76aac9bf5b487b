package forensics

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recontk/internal/config"
	"recontk/internal/log"
	"recontk/internal/toolkit"
)

func newTestTool() *Tool {
	return New(&config.Config{}, log.NewNop(), nil)
}

func sha1Sum(b []byte) []byte {
	sum := sha1.Sum(b)
	return sum[:]
}

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestMetadata(t *testing.T) {
	path := writeTemp(t, "note.txt", []byte("hello forensic world\n"))
	tool := newTestTool()

	res := tool.Dispatch(context.Background(), "metadata", path, nil)
	if !res.Success {
		t.Fatalf("metadata failed: %s", res.Error)
	}
	md, ok := res.Data.(*Metadata)
	if !ok {
		t.Fatalf("data type = %T", res.Data)
	}
	if md.SizeBytes != 21 {
		t.Errorf("size = %d, want 21", md.SizeBytes)
	}
	if !strings.HasPrefix(md.ContentType, "text/plain") {
		t.Errorf("content type = %q", md.ContentType)
	}
	content := []byte("hello forensic world\n")
	if want := hex.EncodeToString(sha1Sum(content)); md.SHA1 != want {
		t.Errorf("sha1 = %q, want %q", md.SHA1, want)
	}
	if want := hex.EncodeToString(sha256Sum(content)); md.SHA256 != want {
		t.Errorf("sha256 = %q, want %q", md.SHA256, want)
	}
	if md.PDF {
		t.Error("plain text flagged as PDF")
	}
	if md.Modified == "" {
		t.Error("modified timestamp missing")
	}
}

func TestMetadataMissingFile(t *testing.T) {
	tool := newTestTool()

	res := tool.Dispatch(context.Background(), "metadata", "/no/such/file.bin", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "Metadata analysis failed for /no/such/file.bin") {
		t.Errorf("error = %q", res.Error)
	}
	if tool.Cache().Len() != 0 {
		t.Error("failure was cached")
	}
}

func TestMetadataDirectoryRejected(t *testing.T) {
	tool := newTestTool()

	res := tool.Dispatch(context.Background(), "metadata", t.TempDir(), nil)
	if res.Success {
		t.Fatal("expected failure for a directory")
	}
	if !strings.Contains(res.Error, "is a directory") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestMetadataBrokenPDFStillSucceeds(t *testing.T) {
	// A %PDF- magic with garbage after it: detection succeeds,
	// validation fails, the operation itself must not.
	path := writeTemp(t, "broken.pdf", []byte("%PDF-1.7 not actually a pdf"))
	tool := newTestTool()

	res := tool.Dispatch(context.Background(), "metadata", path, nil)
	if !res.Success {
		t.Fatalf("metadata failed: %s", res.Error)
	}
	md := res.Data.(*Metadata)
	if !md.PDF {
		t.Error("PDF magic not detected")
	}
	if md.PDFValid {
		t.Error("garbage validated as a well-formed PDF")
	}
}

func TestIsPDF(t *testing.T) {
	if !isPDF("report.PDF", nil) {
		t.Error("extension match failed")
	}
	if !isPDF("blob.bin", []byte("%PDF-1.4")) {
		t.Error("magic match failed")
	}
	if isPDF("blob.bin", []byte("GIF89a")) {
		t.Error("false positive on non-PDF content")
	}
}

func TestMemoryDump(t *testing.T) {
	dump := []byte("\x00\x01user=admin\x00\x02\x03password=hunter2\xff\xfeab\x00longenoughrun")
	path := writeTemp(t, "mem.dmp", dump)
	tool := newTestTool()

	res := tool.Dispatch(context.Background(), "memory_dump", path, nil)
	if !res.Success {
		t.Fatalf("memory_dump failed: %s", res.Error)
	}
	report, ok := res.Data.(*DumpReport)
	if !ok {
		t.Fatalf("data type = %T", res.Data)
	}
	// "ab" is shorter than the default minimum run and must be skipped.
	if report.StringCount != 3 {
		t.Errorf("string count = %d, want 3 (%v)", report.StringCount, report.Sample)
	}
	want := []string{"user=admin", "password=hunter2", "longenoughrun"}
	for i, s := range want {
		if i >= len(report.Sample) || report.Sample[i] != s {
			t.Fatalf("sample = %v, want %v", report.Sample, want)
		}
	}
	if report.SizeBytes != int64(len(dump)) {
		t.Errorf("size = %d, want %d", report.SizeBytes, len(dump))
	}
}

func TestMemoryDumpMinLengthOption(t *testing.T) {
	path := writeTemp(t, "mem.dmp", []byte("ab\x00cdef\x00ghijklmn"))
	tool := newTestTool()

	res := tool.Dispatch(context.Background(), "memory_dump", path,
		toolkit.Options{"min_length": 4})
	if !res.Success {
		t.Fatalf("memory_dump failed: %s", res.Error)
	}
	report := res.Data.(*DumpReport)
	if report.MinRunLength != 4 {
		t.Errorf("min run = %d, want 4", report.MinRunLength)
	}
	if report.StringCount != 2 {
		t.Errorf("string count = %d, want 2 (%v)", report.StringCount, report.Sample)
	}
}

func TestMemoryDumpMinLengthsCachedIndependently(t *testing.T) {
	path := writeTemp(t, "mem.dmp", []byte("ab\x00cdef\x00ghijklmn"))
	tool := newTestTool()
	ctx := context.Background()

	first := tool.Dispatch(ctx, "memory_dump", path, toolkit.Options{"min_length": 3})
	if !first.Success {
		t.Fatalf("memory_dump failed: %s", first.Error)
	}
	if got := first.Data.(*DumpReport).StringCount; got != 2 {
		t.Fatalf("min 3 string count = %d, want 2", got)
	}

	second := tool.Dispatch(ctx, "memory_dump", path, toolkit.Options{"min_length": 10})
	if !second.Success {
		t.Fatalf("memory_dump failed: %s", second.Error)
	}
	report := second.Data.(*DumpReport)
	if report.MinRunLength != 10 {
		t.Errorf("min run = %d, want 10 (stale entry for another threshold)", report.MinRunLength)
	}
	if report.StringCount != 0 {
		t.Errorf("min 10 string count = %d, want 0", report.StringCount)
	}
	if tool.Cache().Len() != 2 {
		t.Errorf("cache holds %d entries, want one per threshold", tool.Cache().Len())
	}
}

func TestMemoryDumpMissingFile(t *testing.T) {
	tool := newTestTool()

	res := tool.Dispatch(context.Background(), "memory_dump", "/no/such/dump", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "Memory dump analysis failed for /no/such/dump") {
		t.Errorf("error = %q", res.Error)
	}
}
