package rag

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yoockh/ameena/internal/providers/llm"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PGVectorSearcher ranks rows of an existing articles table by cosine
// distance to the query embedding. The table needs article, type, content
// and embedding (vector) columns.
type PGVectorSearcher struct {
	db       *gorm.DB
	embedder llm.Embedder
	query    string
}

type articleRow struct {
	Article string  `gorm:"column:article"`
	Type    string  `gorm:"column:type"`
	Content string  `gorm:"column:content"`
	Score   float64 `gorm:"column:score"`
}

func NewPGVectorSearcher(db *gorm.DB, embedder llm.Embedder, table string) (*PGVectorSearcher, error) {
	if table == "" {
		table = "tax_articles"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("rag: invalid table name %q", table)
	}
	q := fmt.Sprintf(
		"SELECT article, type, content, 1 - (embedding <=> ?) AS score FROM %s ORDER BY embedding <=> ? LIMIT ?",
		table,
	)
	return &PGVectorSearcher{db: db, embedder: embedder, query: q}, nil
}

func (s *PGVectorSearcher) Backend() string { return "pgvector" }

func (s *PGVectorSearcher) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	vec := pgvector.NewVector(emb)

	var rows []articleRow
	if err := s.db.WithContext(ctx).Raw(s.query, vec, vec, limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("rag: similarity query: %w", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{Article: r.Article, Type: r.Type, Content: r.Content, Score: r.Score})
	}
	return docs, nil
}

func (s *PGVectorSearcher) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PGVectorSearcher) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
