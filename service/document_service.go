package service

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/metislabs/rag-be/types"
)

// DocumentService loads supported documents and splits them into
// overlapping chunks tagged with provenance metadata.
type DocumentService struct {
	chunkSize    int
	chunkOverlap int
	formats      map[string]bool
	separators   []string
}

var DefaultDocumentServiceConfig = types.DocumentServiceConfig{
	ChunkSize:        500,
	ChunkOverlap:     100,
	SupportedFormats: []string{".txt", ".md", ".pdf", ".docx"},
}

// Boundary preference when cutting a chunk: paragraph, line, sentence,
// clause, word. Hard splits happen only when none fits in the window.
var defaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " "}

func NewDocumentService(config types.DocumentServiceConfig) *DocumentService {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultDocumentServiceConfig.ChunkSize
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = DefaultDocumentServiceConfig.ChunkOverlap
	}
	if len(config.SupportedFormats) == 0 {
		config.SupportedFormats = DefaultDocumentServiceConfig.SupportedFormats
	}

	formats := make(map[string]bool, len(config.SupportedFormats))
	for _, ext := range config.SupportedFormats {
		formats[strings.ToLower(ext)] = true
	}
	log.Printf("Initialized DocumentService with chunk_size=%d, chunk_overlap=%d, formats=%v",
		config.ChunkSize, config.ChunkOverlap, config.SupportedFormats)
	return &DocumentService{
		chunkSize:    config.ChunkSize,
		chunkOverlap: config.ChunkOverlap,
		formats:      formats,
		separators:   defaultSeparators,
	}
}

// ProcessFile splits one document into ordered chunks. All chunks of a
// document share a doc_id derived from the path and the ingestion
// time, so re-ingesting the same file produces a new document.
func (s *DocumentService) ProcessFile(path string) ([]types.Chunk, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, &types.UnsupportedFormatError{Path: path, Reason: "file does not exist"}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !s.formats[ext] {
		return nil, &types.UnsupportedFormatError{Path: path, Reason: fmt.Sprintf("format %s not supported", ext)}
	}

	sections, err := s.loadSections(path, ext)
	if err != nil {
		return nil, &types.ProcessingError{Path: path, Err: err}
	}

	processedAt := time.Now()
	docID := newDocID(path, processedAt)

	var windows []string
	for _, section := range sections {
		windows = append(windows, s.splitText(section)...)
	}

	chunks := make([]types.Chunk, 0, len(windows))
	for i, window := range windows {
		level, name, isStart := extractSectionInfo(window)
		chunks = append(chunks, types.Chunk{
			Content: window,
			Metadata: map[string]any{
				types.MetaSource:         path,
				types.MetaFileType:       ext,
				types.MetaFileName:       filepath.Base(path),
				types.MetaDocID:          docID,
				types.MetaProcessedAt:    processedAt.Format(time.RFC3339),
				types.MetaChunkIndex:     i,
				types.MetaTotalChunks:    len(windows),
				types.MetaChunkSize:      utf8.RuneCountInString(window),
				types.MetaHeadingLevel:   level,
				types.MetaSectionName:    name,
				types.MetaIsSectionStart: isStart,
			},
		})
	}

	log.Printf("Processed %s: %d chunks created, doc_id: %s", path, len(chunks), docID)
	return chunks, nil
}

// ProcessDirectory walks a directory tree and chunks every supported
// file in it. Individual file failures are logged and skipped;
// directory-level problems are fatal.
func (s *DocumentService) ProcessDirectory(dir string) ([]types.Chunk, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &types.ProcessingError{Path: dir, Err: fmt.Errorf("invalid directory path")}
	}

	var allChunks []types.Chunk
	processed, failed := 0, 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !s.formats[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		chunks, err := s.ProcessFile(path)
		if err != nil {
			log.Printf("Error processing %s: %v", path, err)
			failed++
			return nil
		}
		allChunks = append(allChunks, chunks...)
		processed++
		return nil
	})
	if err != nil {
		return nil, &types.ProcessingError{Path: dir, Err: err}
	}

	log.Printf("Processed directory %s: %d files ok, %d failed, %d chunks", dir, processed, failed, len(allChunks))
	return allChunks, nil
}

// loadSections yields the raw text sections of a file. Plain text
// yields one section; structured formats may yield several.
func (s *DocumentService) loadSections(path, ext string) ([]string, error) {
	switch ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []string{string(data)}, nil
	case ".pdf":
		text, err := extractPDFText(path)
		if err != nil {
			return nil, err
		}
		return []string{text}, nil
	case ".docx":
		text, err := extractDocxText(path)
		if err != nil {
			return nil, err
		}
		return []string{text}, nil
	}
	return nil, fmt.Errorf("no loader available for %s", ext)
}

// splitText cuts text into overlapping windows of at most chunkSize
// characters, backing off to the latest preferred boundary inside each
// window. The next window starts chunkOverlap characters before the
// previous cut. All positions are rune offsets so hard splits and
// overlap rewinds never land inside a multi-byte character.
func (s *DocumentService) splitText(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return []string{string(runes)}
	}

	var windows []string
	pos := 0
	for pos < len(runes) {
		end := pos + s.chunkSize
		if end >= len(runes) {
			if window := strings.TrimSpace(string(runes[pos:])); window != "" {
				windows = append(windows, window)
			}
			break
		}

		cut := s.findSplit(runes, pos, end)
		if window := strings.TrimSpace(string(runes[pos:cut])); window != "" {
			windows = append(windows, window)
		}

		next := cut - s.chunkOverlap
		if next <= pos {
			// Ensure progress when the overlap would rewind past the
			// current window start.
			next = cut
		}
		pos = next
	}
	return windows
}

// findSplit returns the rune offset to cut a window at, preferring the
// latest occurrence of the earliest separator in the preference order.
func (s *DocumentService) findSplit(runes []rune, start, end int) int {
	window := string(runes[start:end])
	for _, sep := range s.separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
		}
	}
	return end
}

// extractSectionInfo checks the first two lines of a chunk for a
// markdown-style heading marker.
func extractSectionInfo(text string) (level int, name string, isStart bool) {
	lines := strings.Split(text, "\n")
	if len(lines) > 2 {
		lines = lines[:2]
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			level = len(line) - len(strings.TrimLeft(line, "#"))
			name = strings.Trim(line, "# ")
			isStart = true
			return
		}
	}
	return
}

func newDocID(path string, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%d", path, at.UnixNano())))
	return hex.EncodeToString(sum[:])
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// extractDocxText pulls paragraph text out of word/document.xml inside
// the DOCX archive.
func extractDocxText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	defer archive.Close()

	var doc io.ReadCloser
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			doc, err = file.Open()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("no word/document.xml in archive")
	}
	defer doc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(doc)
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing docx: %w", err)
		}
		switch element := token.(type) {
		case xml.StartElement:
			if element.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(element)
			}
		}
	}
	return sb.String(), nil
}
