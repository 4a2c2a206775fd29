package embedder

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"html"
	"io"
	"math"
	"os"
	"regexp"
	"strings"
)

// ContextLength is the fixed token sequence length of the text encoder
const ContextLength = 77

const (
	startOfText = "<|startoftext|>"
	endOfText   = "<|endoftext|>"
	wordEnd     = "</w>"

	// 49152 vocabulary entries minus 256 byte symbols and 2 specials
	maxMerges = 49152 - 256 - 2
)

// spaceClass matches Unicode whitespace; Go's \s alone is ASCII only
const spaceClass = `\s\v\x{1c}-\x{1f}\x{85}\p{Z}`

var (
	tokenPattern = regexp.MustCompile(`(?i)<\|startoftext\|>|<\|endoftext\|>|'s|'t|'re|'ve|'m|'ll|'d|[\p{L}]+|[\p{N}]|[^` + spaceClass + `\p{L}\p{N}]+`)
	whitespace   = regexp.MustCompile(`[` + spaceClass + `]+`)
)

type mergePair struct {
	first, second string
}

// Tokenizer is the byte-level BPE tokenizer used by CLIP text encoders
type Tokenizer struct {
	byteEncoder [256]string
	encoder     map[string]int32
	ranks       map[mergePair]int
	cache       map[string][]string
	sot, eot    int32
}

// LoadTokenizer reads a merges file, gzip-compressed or plain
func LoadTokenizer(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, _ := br.Peek(2); bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open vocabulary %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	tok, err := NewTokenizer(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tok, nil
}

// NewTokenizer builds a tokenizer from merges text. The first line is a
// header; each following line holds one space-separated merge pair.
func NewTokenizer(r io.Reader) (*Tokenizer, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var merges []mergePair
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		if len(merges) == maxMerges {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed merge line %q", scanner.Text())
		}
		merges = append(merges, mergePair{fields[0], fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	t := &Tokenizer{
		encoder: make(map[string]int32, 512+len(merges)+2),
		ranks:   make(map[mergePair]int, len(merges)),
		cache:   make(map[string][]string),
	}

	order := byteOrder()
	symbols := make([]string, 0, 512+len(merges)+2)
	for i, b := range order {
		t.byteEncoder[b] = string(rune(byteRune(i, b)))
	}
	for _, b := range order {
		symbols = append(symbols, t.byteEncoder[b])
	}
	for _, b := range order {
		symbols = append(symbols, t.byteEncoder[b]+wordEnd)
	}
	for i, m := range merges {
		symbols = append(symbols, m.first+m.second)
		t.ranks[m] = i
	}
	symbols = append(symbols, startOfText, endOfText)

	for i, s := range symbols {
		t.encoder[s] = int32(i)
	}
	t.sot = t.encoder[startOfText]
	t.eot = t.encoder[endOfText]
	t.cache[startOfText] = []string{startOfText}
	t.cache[endOfText] = []string{endOfText}
	return t, nil
}

// byteOrder lists all byte values with the printable ranges first,
// matching the vocabulary layout of the pretrained checkpoints.
func byteOrder() []int {
	order := make([]int, 0, 256)
	printable := make(map[int]bool, 188)
	for _, r := range [][2]int{{'!', '~'}, {0xA1, 0xAC}, {0xAE, 0xFF}} {
		for b := r[0]; b <= r[1]; b++ {
			order = append(order, b)
			printable[b] = true
		}
	}
	for b := 0; b < 256; b++ {
		if !printable[b] {
			order = append(order, b)
		}
	}
	return order
}

// byteRune maps the i-th entry of byteOrder to a visible code point.
// Printable bytes map to themselves, the rest to 256 and up.
func byteRune(i, b int) int {
	const printableCount = 188
	if i < printableCount {
		return b
	}
	return 256 + i - printableCount
}

// SOT returns the start-of-text token id
func (t *Tokenizer) SOT() int32 { return t.sot }

// EOT returns the end-of-text token id
func (t *Tokenizer) EOT() int32 { return t.eot }

func cleanText(text string) string {
	text = html.UnescapeString(html.UnescapeString(text))
	text = whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// Encode converts text to BPE token ids without special tokens
func (t *Tokenizer) Encode(text string) []int32 {
	var ids []int32
	for _, word := range tokenPattern.FindAllString(cleanText(text), -1) {
		var sb strings.Builder
		for _, b := range []byte(word) {
			sb.WriteString(t.byteEncoder[b])
		}
		for _, piece := range t.bpe(sb.String()) {
			if id, ok := t.encoder[piece]; ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Tokenize wraps each text in start/end tokens and pads to ContextLength.
// Over-long texts are truncated with the end token kept in the last slot.
func (t *Tokenizer) Tokenize(texts []string) [][]int32 {
	out := make([][]int32, len(texts))
	for i, text := range texts {
		ids := make([]int32, 0, ContextLength)
		ids = append(ids, t.sot)
		ids = append(ids, t.Encode(text)...)
		ids = append(ids, t.eot)
		if len(ids) > ContextLength {
			ids = ids[:ContextLength]
			ids[ContextLength-1] = t.eot
		}
		row := make([]int32, ContextLength)
		copy(row, ids)
		out[i] = row
	}
	return out
}

func (t *Tokenizer) bpe(token string) []string {
	if cached, ok := t.cache[token]; ok {
		return cached
	}

	runes := []rune(token)
	word := make([]string, len(runes))
	for i, r := range runes {
		word[i] = string(r)
	}
	if len(word) == 0 {
		return nil
	}
	word[len(word)-1] += wordEnd

	for len(word) > 1 {
		best, bestRank := mergePair{}, math.MaxInt
		for i := 0; i < len(word)-1; i++ {
			p := mergePair{word[i], word[i+1]}
			if r, ok := t.ranks[p]; ok && r < bestRank {
				best, bestRank = p, r
			}
		}
		if bestRank == math.MaxInt {
			break
		}

		merged := make([]string, 0, len(word))
		for i := 0; i < len(word); i++ {
			if i < len(word)-1 && word[i] == best.first && word[i+1] == best.second {
				merged = append(merged, best.first+best.second)
				i++
				continue
			}
			merged = append(merged, word[i])
		}
		word = merged
	}

	t.cache[token] = word
	return word
}
