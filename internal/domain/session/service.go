// Package session keeps per-session markdown notes in a flat directory, one
// file per session name. Entries are timestamped into fixed sections so a
// later session can pick up where the previous one stopped.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Service reads and writes session note files.
type Service struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures optional service behavior.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a session note service rooted at dir.
func NewService(dir string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create appends a timestamped entry to a session file, seeding the file
// with the standard section skeleton on first write.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	section := req.Section
	if section == "" {
		section = SectionProgress
	}

	now := s.now()
	name := req.SessionName
	if name == "" {
		name = now.Format("2006-01-02") + "-session"
	}
	if !validSessionName(name) {
		return nil, fmt.Errorf("%w: session name %q", ErrInvalidInput, name)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}

	path := filepath.Join(s.dir, name+".md")
	existing, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading session file: %w", err)
		}
		existing = []byte(sessionTemplate(name, now))
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	entry := "\n### " + timestamp + "\n" + req.Content + "\n"
	updated := insertEntry(string(existing), section, entry)

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("writing session file: %w", err)
	}

	s.logger.Debug("session note added", "file", name+".md", "section", section)

	return &CreateResult{
		Success:      true,
		SessionFile:  path,
		ContentAdded: req.Content,
		Timestamp:    timestamp,
		Section:      section,
		Message:      fmt.Sprintf("added note to %s section of %s.md", section, name),
	}, nil
}

// Read returns one session file: a specific name if given, otherwise the
// most recently modified file within the window.
func (s *Service) Read(ctx context.Context, req ReadRequest) (*ReadResult, error) {
	daysBack := req.DaysBack
	if daysBack <= 0 {
		daysBack = 7
	}

	if _, err := os.Stat(s.dir); err != nil {
		if os.IsNotExist(err) {
			return &ReadResult{Success: false, Message: "no sessions directory found"}, nil
		}
		return nil, fmt.Errorf("checking sessions directory: %w", err)
	}

	var target string
	if req.SessionName != "" {
		if !validSessionName(req.SessionName) {
			return nil, fmt.Errorf("%w: session name %q", ErrInvalidInput, req.SessionName)
		}
		target = filepath.Join(s.dir, req.SessionName+".md")
		if _, err := os.Stat(target); err != nil {
			if os.IsNotExist(err) {
				return &ReadResult{
					Success: false,
					Message: fmt.Sprintf("session file not found: %s.md", req.SessionName),
				}, nil
			}
			return nil, fmt.Errorf("checking session file: %w", err)
		}
	} else {
		files, err := s.filesWithin(daysBack)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return &ReadResult{
				Success: false,
				Message: fmt.Sprintf("no session files found in last %d days", daysBack),
			}, nil
		}
		target = files[0].Path
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("checking session file: %w", err)
	}

	return &ReadResult{
		Success:      true,
		SessionFile:  target,
		Content:      string(data),
		LastModified: info.ModTime().Format("2006-01-02 15:04:05"),
		Message:      "read session: " + filepath.Base(target),
	}, nil
}

// List enumerates session files modified within the window, newest first.
func (s *Service) List(ctx context.Context, daysBack int) (*ListResult, error) {
	if daysBack <= 0 {
		daysBack = 30
	}

	if _, err := os.Stat(s.dir); err != nil {
		if os.IsNotExist(err) {
			return &ListResult{
				Success:  false,
				Sessions: []FileInfo{},
				DaysBack: daysBack,
				Message:  "no sessions directory found",
			}, nil
		}
		return nil, fmt.Errorf("checking sessions directory: %w", err)
	}

	files, err := s.filesWithin(daysBack)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Success:  true,
		Sessions: files,
		Count:    len(files),
		DaysBack: daysBack,
		Message:  fmt.Sprintf("found %d session file(s) in last %d days", len(files), daysBack),
	}, nil
}

// Record satisfies the note recorder other services use to journal into the
// current day's default session file.
func (s *Service) Record(ctx context.Context, section, content string) error {
	_, err := s.Create(ctx, CreateRequest{Content: content, Section: section})
	return err
}

func (s *Service) filesWithin(daysBack int) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing sessions directory: %w", err)
	}

	now := s.now()
	cutoff := now.Add(-time.Duration(daysBack) * 24 * time.Hour)

	type fileWithTime struct {
		info  FileInfo
		mtime time.Time
	}
	var files []fileWithTime
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("reading file info: %w", err)
		}
		mtime := stat.ModTime()
		if !mtime.After(cutoff) {
			continue
		}
		files = append(files, fileWithTime{
			info: FileInfo{
				Name:         entry.Name(),
				Path:         filepath.Join(s.dir, entry.Name()),
				Size:         stat.Size(),
				LastModified: mtime.Format("2006-01-02 15:04:05"),
				AgeDays:      int(now.Sub(mtime).Hours() / 24),
			},
			mtime: mtime,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime.After(files[j].mtime)
	})

	out := make([]FileInfo, len(files))
	for i, f := range files {
		out[i] = f.info
	}
	return out, nil
}

// insertEntry places an entry at the end of its section, before the next
// section heading. Unknown sections become a new heading at the end.
func insertEntry(content, section, entry string) string {
	header := "## " + section
	idx := strings.Index(content, header)
	if idx == -1 {
		return content + "\n" + header + "\n" + entry + "\n"
	}

	rest := content[idx+len(header):]
	next := strings.Index(rest, "\n## ")
	if next == -1 {
		return content[:idx+len(header)] + rest + entry
	}
	return content[:idx+len(header)] + rest[:next] + entry + rest[next:]
}

func sessionTemplate(name string, now time.Time) string {
	return fmt.Sprintf(`# Session: %s

**Date:** %s
**Status:** In Progress

---

## Goals

## Progress

## Decisions

## Issues

## Next Steps

`, name, now.Format("2006-01-02"))
}

// validSessionName rejects names that could escape the sessions directory.
func validSessionName(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
