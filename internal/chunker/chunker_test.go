package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks := Split("hello world", 500, 50)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Errorf("expected original text back, got %q", chunks[0])
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		if chunks := Split(text, 500, 50); len(chunks) != 0 {
			t.Errorf("expected no chunks for %q, got %v", text, chunks)
		}
	}
}

func TestSplit_ParagraphBoundary(t *testing.T) {
	text := "first paragraph.\n\nsecond paragraph."
	chunks := Split(text, 20, 0)

	want := []string{"first paragraph.", "second paragraph."}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplit_NewlineBeatsSentenceEnd(t *testing.T) {
	text := "alpha beta. gamma\ndelta epsilon. zeta"
	chunks := Split(text, 20, 0)

	want := []string{"alpha beta. gamma", "delta epsilon. zeta"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplit_CJKSentenceBoundary(t *testing.T) {
	text := "這是第一句。這是第二句。這是第三句。"
	chunks := Split(text, 12, 0)

	want := []string{"這是第一句。這是第二句。", "這是第三句。"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplit_OverlapCarriesTail(t *testing.T) {
	text := "這是第一句。這是第二句。這是第三句。"
	chunks := Split(text, 12, 6)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[1], "這是第二句。") {
		t.Errorf("expected second chunk to reuse the tail of the first, got %q", chunks[1])
	}
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	runes := []rune(strings.Repeat("零一二三四五六七八九", 3))
	chunks := Split(string(runes), 10, 2)

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %v", len(chunks), chunks)
	}
	wantCounts := []int{10, 10, 10, 6}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n != wantCounts[i] {
			t.Errorf("chunk %d: expected %d runes, got %d", i, wantCounts[i], n)
		}
	}
	// Each window steps by size-overlap, so chunk 1 restarts 2 runes back.
	if !strings.HasPrefix(chunks[1], string(runes[8:10])) {
		t.Errorf("expected chunk 1 to start with %q, got %q", string(runes[8:10]), chunks[1])
	}
}

func TestSplit_BoundsAndCoverage(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("機器學習是人工智慧的一個分支，專注於讓系統從資料中學習。")
		if i%5 == 0 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()

	const size = 100
	chunks := Split(text, size, 20)

	if len(chunks) == 0 {
		t.Fatal("expected chunks for long text")
	}
	for i, c := range chunks {
		if c == "" {
			t.Fatalf("chunk %d is empty", i)
		}
		if n := utf8.RuneCountInString(c); n > size {
			t.Errorf("chunk %d: %d runes exceeds limit %d", i, n, size)
		}
		if !strings.Contains(text, c) {
			t.Errorf("chunk %d is not a substring of the input", i)
		}
	}
}

func TestSplit_InvalidChunkSize(t *testing.T) {
	if chunks := Split("some text", 0, 0); chunks != nil {
		t.Errorf("expected nil for zero chunk size, got %v", chunks)
	}
}
