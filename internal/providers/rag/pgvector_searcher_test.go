package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeEmbedder struct {
	vec []float32
	err error
	got string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.got = text
	return f.vec, f.err
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return gdb, mock
}

func TestPGVectorSearcherSearch(t *testing.T) {
	gdb, mock := newMockDB(t)
	emb := &fakeEmbedder{vec: []float32{0.25, 0.5, 1}}
	s, err := NewPGVectorSearcher(gdb, emb, "")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"article", "type", "content", "score"}).
		AddRow("169", "article", "Ставка НДС 14%", 0.91).
		AddRow("170", "note", "Льготы", 0.42)
	mock.ExpectQuery(`FROM tax_articles ORDER BY embedding <=> \$2 LIMIT \$3`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 3).
		WillReturnRows(rows)

	docs, err := s.Search(context.Background(), "ставка НДС", 3)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, Document{Article: "169", Type: "article", Content: "Ставка НДС 14%", Score: 0.91}, docs[0])
	assert.Equal(t, "note", docs[1].Type)
	assert.Equal(t, "ставка НДС", emb.got)
	assert.Equal(t, "pgvector", s.Backend())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGVectorSearcherEmbedFailureSkipsQuery(t *testing.T) {
	gdb, mock := newMockDB(t)
	s, err := NewPGVectorSearcher(gdb, &fakeEmbedder{err: errors.New("embeddings offline")}, "tax_articles")
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "embed query")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGVectorSearcherQueryError(t *testing.T) {
	gdb, mock := newMockDB(t)
	s, err := NewPGVectorSearcher(gdb, &fakeEmbedder{vec: []float32{1}}, "public.tax_articles")
	require.NoError(t, err)

	mock.ExpectQuery(`FROM public\.tax_articles`).WillReturnError(errors.New("relation does not exist"))
	_, err = s.Search(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "similarity query")
}

func TestPGVectorSearcherRejectsBadTable(t *testing.T) {
	_, err := NewPGVectorSearcher(nil, nil, "tax; DROP TABLE x")
	assert.Error(t, err)
}
