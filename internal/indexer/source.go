package indexer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/alimtalk/internal/model"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
)

type jsonlChunk struct {
	ChunkID  string        `json:"chunk_id"`
	Content  string        `json:"content"`
	Metadata jsonlMetadata `json:"metadata"`
}

type jsonlMetadata struct {
	DocumentType string `json:"document_type"`
	SourceFile   string `json:"source_file"`
}

// LoadDir reads every *.jsonl and *.md file directly under dir in name order.
func LoadDir(ctx context.Context, dir string) ([]model.PolicyChunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jsonl", ".md":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var out []model.PolicyChunk
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var chunks []model.PolicyChunk
		if strings.EqualFold(filepath.Ext(name), ".jsonl") {
			chunks, err = ParseJSONL(name, data)
			if err != nil {
				return nil, err
			}
		} else {
			chunks = ChunkMarkdown(ctx, name, data)
		}
		logutil.GetLogger(ctx).Info("policy source loaded", zap.String("file", name), zap.Int("chunks", len(chunks)))
		out = append(out, chunks...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no policy chunks under %s: %w", dir, appErr.ErrInvalid)
	}
	return out, nil
}

// ParseJSONL decodes one chunk per line. Blank lines are skipped.
func ParseJSONL(name string, data []byte) ([]model.PolicyChunk, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var out []model.PolicyChunk
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var item jsonlChunk
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("%s:%d: %w: %w", name, lineNo, appErr.ErrInvalid, err)
		}
		id := strings.TrimSpace(item.ChunkID)
		if id == "" {
			return nil, fmt.Errorf("%s:%d: chunk_id is required: %w", name, lineNo, appErr.ErrInvalid)
		}
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		category := strings.TrimSpace(item.Metadata.DocumentType)
		if category == "" {
			source := item.Metadata.SourceFile
			if source == "" {
				source = name
			}
			category = ClassifyFile(source)
		}
		out = append(out, model.PolicyChunk{ID: id, Category: category, Text: content})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	return out, nil
}
