package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Extension is appended to every entry name.
const Extension = ".jpg"

// DuplicatePolicy decides what happens when an entry name is added twice.
type DuplicatePolicy int

const (
	// Overwrite replaces the earlier data; the entry keeps its first position.
	Overwrite DuplicatePolicy = iota
	// Suffix stores the later data under name-2.jpg, name-3.jpg, ...
	Suffix
)

func (p DuplicatePolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Suffix:
		return "suffix"
	default:
		return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
	}
}

// ParseDuplicatePolicy parses "overwrite" or "suffix".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return Overwrite, nil
	case "suffix":
		return Suffix, nil
	default:
		return Overwrite, fmt.Errorf("archive: unknown duplicate policy %q", s)
	}
}

// ErrEmptyName is returned by Add for an empty entry name.
var ErrEmptyName = errors.New("archive: empty entry name")

var fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// EntryName derives an archive file name from an asset's display name.
func EntryName(displayName string) string {
	folded, _, err := transform.String(fold, displayName)
	if err != nil {
		folded = displayName
	}
	folded = strings.ToLower(folded)

	var sb strings.Builder
	sb.Grow(len(folded) + len(Extension))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	sb.WriteString(Extension)
	return sb.String()
}

// Options configures a Builder.
type Options struct {
	Duplicates DuplicatePolicy
	Level      int
	Modified   time.Time
}

// Option is a functional option for NewBuilder.
type Option func(*Options)

// WithDuplicatePolicy sets how repeated entry names are handled.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *Options) {
		o.Duplicates = p
	}
}

// WithLevel sets the deflate level. Default: flate.BestSpeed.
func WithLevel(level int) Option {
	return func(o *Options) {
		o.Level = level
	}
}

// WithModified sets the modification time stamped on every entry.
// Default: the time NewBuilder was called.
func WithModified(t time.Time) Option {
	return func(o *Options) {
		o.Modified = t
	}
}

// Builder collects entries for a ZIP archive. It is not safe for concurrent use.
type Builder struct {
	opts    Options
	order   []string
	entries map[string][]byte
}

// NewBuilder returns an empty Builder.
func NewBuilder(options ...Option) *Builder {
	opts := Options{
		Duplicates: Overwrite,
		Level:      flate.BestSpeed,
		Modified:   time.Now(),
	}
	for _, opt := range options {
		opt(&opts)
	}

	return &Builder{
		opts:    opts,
		entries: make(map[string][]byte),
	}
}

// Add stores data under name and returns the name actually used.
func (b *Builder) Add(name string, data []byte) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}

	if _, exists := b.entries[name]; exists && b.opts.Duplicates == Suffix {
		name = b.nextFree(name)
	}

	if _, exists := b.entries[name]; !exists {
		b.order = append(b.order, name)
	}
	b.entries[name] = data
	return name, nil
}

func (b *Builder) nextFree(name string) string {
	ext := ""
	base := name
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		base, ext = name[:i], name[i:]
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
		if _, exists := b.entries[candidate]; !exists {
			return candidate
		}
	}
}

// Len returns the number of distinct entries.
func (b *Builder) Len() int {
	return len(b.order)
}

// Names returns entry names in archive order.
func (b *Builder) Names() []string {
	names := make([]string, len(b.order))
	copy(names, b.order)
	return names
}

// Finalize compresses all entries and returns the archive bytes. progress,
// if not nil, is called after each entry with the number written so far.
func (b *Builder) Finalize(progress func(done, total int)) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	level := b.opts.Level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	total := len(b.order)
	for i, name := range b.order {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: b.opts.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("archive: create entry %s: %w", name, err)
		}
		if _, err := w.Write(b.entries[name]); err != nil {
			return nil, fmt.Errorf("archive: write entry %s: %w", name, err)
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close: %w", err)
	}
	return buf.Bytes(), nil
}

// List returns the entry names stored in a ZIP archive.
func List(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}
