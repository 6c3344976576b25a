package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/utils"
)

// Repository keeps content records between runs
type Repository interface {
	Save(ctx context.Context, record *models.ContentRecord) error
	List(ctx context.Context, limit int) ([]*models.ContentRecord, error)
	FindByID(ctx context.Context, id string) (*models.ContentRecord, error)
}

// Paths are the files written for one record
type Paths struct {
	JSON     string `json:"json"`
	Markdown string `json:"markdown"`
}

// FileWriter writes records as JSON and Markdown under OUTPUT_DIR/YYYYMMDD
type FileWriter struct {
	baseDir string
	logger  logrus.FieldLogger
}

func NewFileWriter(baseDir string, logger logrus.FieldLogger) *FileWriter {
	return &FileWriter{baseDir: baseDir, logger: logger}
}

// BaseName is <type>_<topic with underscores>
func BaseName(record *models.ContentRecord) string {
	return utils.SanitizeFilename(string(record.ContentType) + "_" + record.Topic)
}

// PathsFor returns where record is written
func (w *FileWriter) PathsFor(record *models.ContentRecord) Paths {
	base := filepath.Join(utils.DateDir(w.baseDir, record.CreatedAt), BaseName(record))
	return Paths{JSON: base + ".json", Markdown: base + ".md"}
}

// WorkDir is the per-record directory for intermediate media
func (w *FileWriter) WorkDir(record *models.ContentRecord) string {
	return filepath.Join(utils.DateDir(w.baseDir, record.CreatedAt), BaseName(record)+"_work")
}

// Write stores record as JSON and Markdown, overwriting earlier versions
func (w *FileWriter) Write(record *models.ContentRecord) (Paths, error) {
	paths := w.PathsFor(record)
	if err := utils.EnsureDirectoryExists(filepath.Dir(paths.JSON)); err != nil {
		return paths, fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return paths, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := os.WriteFile(paths.JSON, data, 0644); err != nil {
		return paths, fmt.Errorf("failed to write %s: %w", paths.JSON, err)
	}
	if err := os.WriteFile(paths.Markdown, []byte(Markdown(record)), 0644); err != nil {
		return paths, fmt.Errorf("failed to write %s: %w", paths.Markdown, err)
	}

	w.logger.WithFields(logrus.Fields{
		"content_type": record.ContentType,
		"file":         paths.JSON,
	}).Debug("💾 record written")
	return paths, nil
}

// Save implements Repository
func (w *FileWriter) Save(_ context.Context, record *models.ContentRecord) error {
	_, err := w.Write(record)
	return err
}

// List reads back the newest records from the output directory
func (w *FileWriter) List(ctx context.Context, limit int) ([]*models.ContentRecord, error) {
	var records []*models.ContentRecord
	err := filepath.WalkDir(w.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == w.baseDir {
				return filepath.SkipAll
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasSuffix(d.Name(), "_work") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		record := &models.ContentRecord{}
		if err := json.Unmarshal(data, record); err != nil || record.ContentType == "" {
			w.logger.WithField("file", path).Debug("skipping non-record json")
			return nil
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// FindByID scans the written records for id
func (w *FileWriter) FindByID(ctx context.Context, id string) (*models.ContentRecord, error) {
	records, err := w.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.ID == id {
			if err := record.RestoreTimeline(); err != nil {
				w.logger.WithError(err).Warn("record file has an invalid timeline")
			}
			return record, nil
		}
	}
	return nil, ErrNotFound
}

// Markdown renders the human readable form of a record
func Markdown(record *models.ContentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", record.Title)
	fmt.Fprintf(&b, "- 유형: %s\n", record.ContentType.Label())
	fmt.Fprintf(&b, "- 주제: %s\n", record.Topic)
	fmt.Fprintf(&b, "- 생성일: %s\n", record.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- 길이: %.0f초\n", record.DurationTargetSeconds)
	if record.NarrationSeconds > 0 {
		fmt.Fprintf(&b, "- 내레이션: %.1f초\n", record.NarrationSeconds)
	}
	if record.VideoID != "" {
		fmt.Fprintf(&b, "- YouTube: https://youtu.be/%s\n", record.VideoID)
	}

	b.WriteString("\n## 본문\n\n")
	b.WriteString(record.BodyText)
	b.WriteString("\n\n## 타임라인\n\n")
	b.WriteString("| 구간 | 시작 | 길이 |\n|---|---|---|\n")
	for _, seg := range record.SegmentTimeline {
		fmt.Fprintf(&b, "| %s | %.1f초 | %.1f초 |\n", seg.Name, seg.StartSeconds, seg.LengthSeconds)
	}

	if len(record.Tags) > 0 {
		b.WriteString("\n## 태그\n\n")
		tags := make([]string, len(record.Tags))
		for i, tag := range record.Tags {
			tags[i] = "#" + tag
		}
		b.WriteString(strings.Join(tags, " "))
		b.WriteString("\n")
	}

	if len(record.Warnings) > 0 {
		b.WriteString("\n## 경고\n\n")
		for _, warning := range record.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
	}
	return b.String()
}
