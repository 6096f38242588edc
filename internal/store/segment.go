package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/xplr/topicsearch/internal/index"
)

// Segment file layout: a fixed header, one JSON posting block per term, the
// JSON term dictionary, the JSON stored-documents table, and a footer with
// CRC32 checksums over the dictionary and docs sections.
const (
	MagicBytes    uint32 = 0x54535831 // "TSX1"
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32

	SegmentSuffix = ".tsi"
)

// segmentHeader is the 64-byte header written at the start of every segment.
type segmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
	DocsOffset int64
	DocsSize   int64
}

func (h segmentHeader) encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(buf[48:56], uint64(h.DocsOffset))
	binary.LittleEndian.PutUint64(buf[56:64], uint64(h.DocsSize))
	return buf
}

func decodeHeader(buf []byte) segmentHeader {
	return segmentHeader{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint32(buf[4:8]),
		TermCount:  binary.LittleEndian.Uint32(buf[8:12]),
		DocCount:   binary.LittleEndian.Uint32(buf[12:16]),
		PostOffset: int64(binary.LittleEndian.Uint64(buf[16:24])),
		PostSize:   int64(binary.LittleEndian.Uint64(buf[24:32])),
		DictOffset: int64(binary.LittleEndian.Uint64(buf[32:40])),
		DictSize:   int64(binary.LittleEndian.Uint64(buf[40:48])),
		DocsOffset: int64(binary.LittleEndian.Uint64(buf[48:56])),
		DocsSize:   int64(binary.LittleEndian.Uint64(buf[56:64])),
	}
}

// dictEntry maps a term to its postings offset, length, and document
// frequency within the segment file.
type dictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// segmentWriter serialises index snapshots into new segment files.
type segmentWriter struct {
	dir string
}

func newSegmentWriter(dir string) *segmentWriter {
	return &segmentWriter{dir: dir}
}

// Write atomically creates a new segment containing the given snapshot.
// It writes to a .tmp file first and renames on success. An empty snapshot
// is valid and produces an empty segment.
func (w *segmentWriter) Write(entries []index.TermEntry, docs []index.DocEntry) (string, error) {
	segmentName := fmt.Sprintf("seg_%d%s", time.Now().UnixNano(), SegmentSuffix)
	finalPath := filepath.Join(w.dir, segmentName)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()

	header := segmentHeader{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(entries)),
		DocCount:  uint32(len(docs)),
	}
	if _, err := f.Write(header.encode()); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	postStart := int64(HeaderSize)
	offset := postStart
	dict := make([]dictEntry, 0, len(entries))
	for _, entry := range entries {
		postingsData, err := json.Marshal(entry.Postings)
		if err != nil {
			return "", fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		if _, err := f.Write(postingsData); err != nil {
			return "", fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
		dict = append(dict, dictEntry{
			Term:       entry.Term,
			PostOffset: offset - postStart,
			PostLen:    len(postingsData),
			DocFreq:    len(entry.Postings),
		})
		offset += int64(len(postingsData))
	}
	postSize := offset - postStart

	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}

	docsData, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("marshaling docs table: %w", err)
	}
	if _, err := f.Write(docsData); err != nil {
		return "", fmt.Errorf("writing docs table: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], crc32.ChecksumIEEE(docsData))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(len(dictData)))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(len(docsData)))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(postSize))
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}

	header.PostOffset = postStart
	header.PostSize = postSize
	header.DictOffset = postStart + postSize
	header.DictSize = int64(len(dictData))
	header.DocsOffset = header.DictOffset + header.DictSize
	header.DocsSize = int64(len(docsData))
	if _, err := f.WriteAt(header.encode(), 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return segmentName, nil
}

// readSegment loads a full segment into memory form, verifying magic bytes
// and section checksums.
func readSegment(path string) ([]index.TermEntry, []index.DocEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening segment file: %w", err)
	}
	defer f.Close()

	header, err := readAndCheckHeader(f)
	if err != nil {
		return nil, nil, err
	}
	dict, docs, err := readSections(f, header)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]index.TermEntry, 0, len(dict))
	for _, de := range dict {
		postingsData := make([]byte, de.PostLen)
		if _, err := f.ReadAt(postingsData, header.PostOffset+de.PostOffset); err != nil {
			return nil, nil, fmt.Errorf("reading postings for term %q: %w", de.Term, err)
		}
		var postings index.PostingList
		if err := json.Unmarshal(postingsData, &postings); err != nil {
			return nil, nil, fmt.Errorf("parsing postings for term %q: %w", de.Term, err)
		}
		entries = append(entries, index.TermEntry{
			Term:     de.Term,
			Postings: postings,
		})
	}
	return entries, docs, nil
}

func readAndCheckHeader(f *os.File) (segmentHeader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return segmentHeader{}, fmt.Errorf("reading segment header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return segmentHeader{}, fmt.Errorf("invalid segment file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return segmentHeader{}, fmt.Errorf("unsupported segment version %d", header.Version)
	}
	return header, nil
}

// readSections returns the parsed dictionary and docs table after verifying
// their checksums against the footer.
func readSections(f *os.File, header segmentHeader) ([]dictEntry, []index.DocEntry, error) {
	dictData := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictData, header.DictOffset); err != nil {
		return nil, nil, fmt.Errorf("reading dictionary: %w", err)
	}
	docsData := make([]byte, header.DocsSize)
	if _, err := f.ReadAt(docsData, header.DocsOffset); err != nil {
		return nil, nil, fmt.Errorf("reading docs table: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DocsOffset+header.DocsSize); err != nil {
		return nil, nil, fmt.Errorf("reading footer: %w", err)
	}
	if crc := binary.LittleEndian.Uint32(footer[0:4]); crc != crc32.ChecksumIEEE(dictData) {
		return nil, nil, fmt.Errorf("dictionary checksum mismatch")
	}
	if crc := binary.LittleEndian.Uint32(footer[4:8]); crc != crc32.ChecksumIEEE(docsData) {
		return nil, nil, fmt.Errorf("docs table checksum mismatch")
	}
	var dict []dictEntry
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return nil, nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	var docs []index.DocEntry
	if err := json.Unmarshal(docsData, &docs); err != nil {
		return nil, nil, fmt.Errorf("parsing docs table: %w", err)
	}
	return dict, docs, nil
}
