package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/voara-ai/voara-rag/internal/rag"
)

// reconstruct joins chunks with the overlap stripped, which must yield
// the original document exactly.
func reconstruct(chunks []rag.Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i > 0 {
			runes = runes[overlap:]
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

func Test_Chunk_InvalidParameters(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Chunk("some text", "doc.md", tc.size, tc.overlap)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, rag.ErrChunking) {
				t.Errorf("expected rag.ErrChunking, got %v", err)
			}
		})
	}
}

func Test_Chunk_ShortDocumentSingleChunk(t *testing.T) {
	t.Parallel()
	text := "Voara AI offers 24/7 customer support."
	chunks, err := Chunk(text, "faq.md", 1000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text = %q, want %q", chunks[0].Text, text)
	}
	if chunks[0].Position != 0 {
		t.Errorf("position = %d, want 0", chunks[0].Position)
	}
	if chunks[0].Source != "faq.md" {
		t.Errorf("source = %q, want faq.md", chunks[0].Source)
	}
}

func Test_Chunk_EmptyDocument(t *testing.T) {
	t.Parallel()
	chunks, err := Chunk("", "empty.md", 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func Test_Chunk_CoverageReconstructsSource(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{
			name:    "paragraphs",
			text:    "First paragraph about pricing.\n\nSecond paragraph about support.\n\nThird paragraph about features and capabilities of the product.",
			size:    50,
			overlap: 10,
		},
		{
			name:    "no natural boundaries",
			text:    strings.Repeat("x", 500),
			size:    64,
			overlap: 8,
		},
		{
			name:    "zero overlap",
			text:    strings.Repeat("word boundary test ", 40),
			size:    100,
			overlap: 0,
		},
		{
			name:    "arabic text",
			text:    strings.Repeat("تقدم فوارا الذكاء الاصطناعي دعم العملاء على مدار الساعة. ", 20),
			size:    80,
			overlap: 12,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			chunks, err := Chunk(tc.text, "doc.md", tc.size, tc.overlap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := reconstruct(chunks, tc.overlap); got != tc.text {
				t.Errorf("reconstruction mismatch:\ngot  %q\nwant %q", got, tc.text)
			}
			for i, c := range chunks {
				if n := len([]rune(c.Text)); n > tc.size {
					t.Errorf("chunk %d has %d runes, exceeds size %d", i, n, tc.size)
				}
				if c.Position != i {
					t.Errorf("chunk %d has position %d", i, c.Position)
				}
			}
		})
	}
}

func Test_Chunk_OverlapIsExact(t *testing.T) {
	t.Parallel()
	const overlap = 10
	text := strings.Repeat("abcdefghij", 30)
	chunks, err := Chunk(text, "doc.md", 64, overlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		tail := string(prev[len(prev)-overlap:])
		head := string(cur[:overlap])
		if tail != head {
			t.Errorf("chunks %d/%d: tail %q != head %q", i-1, i, tail, head)
		}
	}
}

func Test_Chunk_HeaderTracking(t *testing.T) {
	t.Parallel()
	text := "intro before any heading\n\n" +
		"# Pricing\n\nPlans start at $29 per month for the basic tier.\n\n" +
		"## Enterprise\n\nCustom pricing for large deployments with SLAs."
	chunks, err := Chunk(text, "pricing.md", 60, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if chunks[0].Header != "" {
		t.Errorf("first chunk header = %q, want empty (starts before any heading)", chunks[0].Header)
	}

	var sawPricing, sawEnterprise bool
	for _, c := range chunks {
		switch c.Header {
		case "Pricing":
			sawPricing = true
		case "Enterprise":
			sawEnterprise = true
		}
	}
	if !sawPricing {
		t.Error("no chunk carries header \"Pricing\"")
	}
	if !sawEnterprise {
		t.Error("no chunk carries header \"Enterprise\"")
	}
}

func Test_Chunk_PrefersParagraphBreaks(t *testing.T) {
	t.Parallel()
	text := "Alpha paragraph content here.\n\nBeta paragraph content here.\n\nGamma paragraph content here."
	chunks, err := Chunk(text, "doc.md", 60, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// With a 60-rune window over ~31-rune paragraphs, the first cut
	// should land right after a blank line rather than mid-word.
	first := chunks[0].Text
	if !strings.HasSuffix(first, "\n\n") {
		t.Errorf("first chunk does not end at a paragraph break: %q", first)
	}
}

func Test_ChunkID_StableAndDistinct(t *testing.T) {
	t.Parallel()
	a := ChunkID("docs/faq.md", 0)
	b := ChunkID("docs/faq.md", 0)
	c := ChunkID("docs/faq.md", 1)
	d := ChunkID("docs/pricing.md", 0)

	if a != b {
		t.Errorf("same source+position produced different ids: %q vs %q", a, b)
	}
	if a == c || a == d {
		t.Error("distinct chunks share an id")
	}
	if len(a) != 36 {
		t.Errorf("id %q is not a UUID string", a)
	}
}
