// Package loader 读取知识库目录中的文本文件并切分为分段。
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kart-io/kb-chatbot/internal/chatbot/store"
)

// FileExt 知识库文件扩展名。
const FileExt = ".txt"

// 分段元数据键。
const (
	MetaSource   = "source"
	MetaSection  = "section"
	MetaFilePath = "file_path"
)

var (
	// ErrDirectoryNotFound 知识库目录不存在。
	ErrDirectoryNotFound = errors.New("loader: knowledge base directory not found")

	// ErrNoDocuments 目录中没有可用的分段。
	ErrNoDocuments = errors.New("loader: no documents found in knowledge base directory")
)

var sectionBreak = regexp.MustCompile(`\n{2,}`)

// Section 文本文件中的一个分段。
type Section struct {
	Content  string
	Metadata map[string]any
}

// Source 返回分段所属文件名。
func (s Section) Source() string {
	v, _ := s.Metadata[MetaSource].(string)
	return v
}

// Index 返回分段在文件中的序号（从 1 开始）。
func (s Section) Index() int {
	v, _ := s.Metadata[MetaSection].(int)
	return v
}

// Documents 将分段转换为向量存储的文档。
func Documents(sections []Section) []store.Document {
	docs := make([]store.Document, len(sections))
	for i, s := range sections {
		docs[i] = store.Document{Content: s.Content, Metadata: s.Metadata}
	}
	return docs
}

// Split 按连续两个及以上换行切分文本。
// 序号按所有切片计数，空切片被丢弃但仍占用序号。
func Split(text, source, path string) []Section {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	pieces := sectionBreak.Split(strings.TrimSpace(text), -1)

	sections := make([]Section, 0, len(pieces))
	for i, piece := range pieces {
		content := strings.TrimSpace(piece)
		if content == "" {
			continue
		}
		sections = append(sections, Section{
			Content: content,
			Metadata: map[string]any{
				MetaSource:   source,
				MetaSection:  i + 1,
				MetaFilePath: path,
			},
		})
	}
	return sections
}

// LoadFile 读取单个文件并切分。
func LoadFile(path string) ([]Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Split(string(data), filepath.Base(path), path), nil
}

// LoadDirectory 按文件名字典序读取 dir 下（不递归）全部 .txt 文件。
// 目录不存在返回 ErrDirectoryNotFound，没有任何分段返回 ErrNoDocuments。
func LoadDirectory(dir string) ([]Section, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsKnowledgeFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var sections []Section
	for _, name := range names {
		fileSections, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		sections = append(sections, fileSections...)
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, dir)
	}
	return sections, nil
}

// IsKnowledgeFile 判断文件名是否为知识库文件。
func IsKnowledgeFile(name string) bool {
	return strings.HasSuffix(name, FileExt)
}
