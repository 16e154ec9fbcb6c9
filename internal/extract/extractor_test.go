package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xxxsen/docqa/internal/config"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": documentXML,
	}
	for name, body := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func buildXlsx(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "part"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "interval"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "pump"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "monthly"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// buildPDF writes a two page PDF: the first page shows text, the second
// has no content stream.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 6 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	buf := new(bytes.Buffer)
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func newServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newExtractor(t *testing.T, cfg config.ExtractConfig) *Extractor {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestExtractFormats(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>The pump requires </w:t></w:r><w:r><w:t>monthly lubrication.</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Check the seals.</w:t></w:r></w:p>
</w:body>
</w:document>`
	server := newServer(t, map[string][]byte{
		"/manual.txt":  []byte("The pump requires monthly lubrication."),
		"/manual.docx": buildDocx(t, docXML),
		"/manual.xlsx": buildXlsx(t),
		"/manual.pdf":  buildPDF("The pump requires monthly lubrication."),
		"/manual.md":   []byte("# Pump\n\nThe pump requires **monthly** lubrication.\n\n- check seals\n- check oil\n"),
		"/empty.txt":   {},
	})
	e := newExtractor(t, config.ExtractConfig{Timeout: 5})

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "text", path: "/manual.txt", want: "The pump requires monthly lubrication."},
		{name: "pdf with blank page", path: "/manual.pdf", want: "The pump requires monthly lubrication.\n"},
		{name: "docx", path: "/manual.docx", want: "The pump requires monthly lubrication.\n\nCheck the seals."},
		{name: "xlsx", path: "/manual.xlsx", want: "part\tinterval\npump\tmonthly"},
		{name: "markdown as text", path: "/manual.md", want: "# Pump\n\nThe pump requires **monthly** lubrication.\n\n- check seals\n- check oil\n"},
		{name: "query string ignored", path: "/manual.docx?token=abc#page", want: "The pump requires monthly lubrication.\n\nCheck the seals."},
		{name: "empty", path: "/empty.txt", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), server.URL+tt.path)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractMarkdownStripped(t *testing.T) {
	server := newServer(t, map[string][]byte{
		"/manual.md": []byte("# Pump\n\n<div>Torque: 40 Nm</div>\n\nSee [manual](https://docs.example.com/p100) now.\n\n- check seals\n- check oil\n"),
	})
	e := newExtractor(t, config.ExtractConfig{Timeout: 5, StripMarkdown: true})

	got, err := e.Extract(context.Background(), server.URL+"/manual.md")
	require.NoError(t, err)
	require.Equal(t, "Pump\n<div>Torque: 40 Nm</div>\nSee manual (https://docs.example.com/p100) now.\ncheck seals\ncheck oil", got)
}

func TestExtractFailures(t *testing.T) {
	server := newServer(t, map[string][]byte{
		"/binary.txt":  {0xff, 0xfe, 0xfd},
		"/broken.pdf":  []byte("%PDF-1.4 not really"),
		"/broken.docx": []byte("not a zip"),
		"/big.txt":     bytes.Repeat([]byte("a"), 64),
	})
	e := newExtractor(t, config.ExtractConfig{Timeout: 5, MaxBytes: 32})

	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "invalid utf8", url: server.URL + "/binary.txt", want: appErr.ErrUnsupportedContent},
		{name: "corrupt pdf", url: server.URL + "/broken.pdf", want: appErr.ErrUnsupportedContent},
		{name: "corrupt docx", url: server.URL + "/broken.docx", want: appErr.ErrUnsupportedContent},
		{name: "too large", url: server.URL + "/big.txt", want: appErr.ErrTooLarge},
		{name: "missing", url: server.URL + "/missing.pdf", want: appErr.ErrUpstream},
		{name: "relative", url: "manual.pdf", want: appErr.ErrInvalid},
		{name: "unsupported scheme", url: "ftp://example.com/a.pdf", want: appErr.ErrInvalid},
		{name: "file scheme disabled", url: "file:///etc/hosts", want: appErr.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), tt.url)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractFileScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("Lubricate the pump monthly."), 0o600))

	e := newExtractor(t, config.ExtractConfig{AllowFileScheme: true})
	got, err := e.Extract(context.Background(), "file://"+path)
	require.NoError(t, err)
	require.Equal(t, "Lubricate the pump monthly.", got)

	_, err = e.Extract(context.Background(), "file://"+filepath.Join(t.TempDir(), "gone.txt"))
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

type staticFetcher struct {
	data []byte
	got  string
}

func (s *staticFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	s.got = rawURL
	return s.data, nil
}

func TestExtractS3Dispatch(t *testing.T) {
	e := newExtractor(t, config.ExtractConfig{})
	fake := &staticFetcher{data: []byte("from bucket")}
	e.SetFetcher("s3", fake)

	got, err := e.Extract(context.Background(), "s3://manuals/pumps/p100.txt")
	require.NoError(t, err)
	require.Equal(t, "from bucket", got)
	require.Equal(t, "s3://manuals/pumps/p100.txt", fake.got)
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://manuals/pumps/p100.pdf")
	require.NoError(t, err)
	require.Equal(t, "manuals", bucket)
	require.Equal(t, "pumps/p100.pdf", key)

	_, _, err = parseS3URL("s3://manuals")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
