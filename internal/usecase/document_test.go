package usecase_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
	"github.com/ErlanBelekov/snapdocs/internal/storage"
	"github.com/ErlanBelekov/snapdocs/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type memDocs struct {
	byID      map[string]*domain.Document
	nextID    int
	clock     time.Time
	createErr error
	lastList  repository.ListDocumentsInput
	lastQuery repository.SearchDocumentsInput
}

func newMemDocs() *memDocs {
	return &memDocs{
		byID:  map[string]*domain.Document{},
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memDocs) put(d *domain.Document) { m.byID[d.ID] = d }

func (m *memDocs) Create(_ context.Context, d *domain.Document) (*domain.Document, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	c := *d
	c.ID = fmt.Sprintf("00000000-0000-4000-8000-%012d", m.nextID)
	c.CreatedAt, c.UpdatedAt = m.clock, m.clock
	m.byID[c.ID] = &c
	return &c, nil
}

func (m *memDocs) GetByID(_ context.Context, id, ownerID string) (*domain.Document, error) {
	if d, ok := m.byID[id]; ok && d.OwnerID == ownerID {
		return d, nil
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *memDocs) GetByStoredName(_ context.Context, storedName string) (*domain.Document, error) {
	for _, d := range m.byID {
		if d.StoredName == storedName {
			return d, nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *memDocs) List(_ context.Context, in repository.ListDocumentsInput) ([]*domain.Document, error) {
	m.lastList = in
	var out []*domain.Document
	for _, d := range m.byID {
		if d.OwnerID != in.OwnerID || (in.FolderID != "" && d.FolderID != in.FolderID) {
			continue
		}
		if in.CursorTime != nil {
			after := d.CreatedAt.Before(*in.CursorTime) ||
				(d.CreatedAt.Equal(*in.CursorTime) && d.ID < in.CursorID)
			if !after {
				continue
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out, nil
}

func (m *memDocs) Update(_ context.Context, id, ownerID string, upd repository.DocumentUpdate) (*domain.Document, error) {
	d, ok := m.byID[id]
	if !ok || d.OwnerID != ownerID {
		return nil, domain.ErrDocumentNotFound
	}
	if upd.Name != nil {
		d.Name = *upd.Name
	}
	if upd.Description != nil {
		d.Description = *upd.Description
	}
	if upd.Tags != nil {
		d.Tags = upd.Tags
	}
	if upd.FolderID != nil {
		d.FolderID = *upd.FolderID
	}
	return d, nil
}

func (m *memDocs) Delete(_ context.Context, id, ownerID string) error {
	d, ok := m.byID[id]
	if !ok || d.OwnerID != ownerID {
		return domain.ErrDocumentNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memDocs) SearchByName(_ context.Context, ownerID, query string, limit int) ([]*domain.Document, error) {
	var out []*domain.Document
	for _, d := range m.byID {
		if d.OwnerID == ownerID && strings.Contains(strings.ToLower(d.Name), strings.ToLower(query)) {
			out = append(out, d)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDocs) Search(_ context.Context, in repository.SearchDocumentsInput) ([]*domain.Document, int, error) {
	m.lastQuery = in
	return nil, 0, nil
}

type memStore struct {
	objects map[string][]byte
	saveErr error
	deleted []string
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Save(_ context.Context, key string, data []byte, _ string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Open(_ context.Context, key string) (*storage.Object, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{Body: io.NopCloser(bytes.NewReader(b)), Size: int64(len(b))}, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

// ---- helpers ----

const testMaxFileSize = 64

type docFixture struct {
	uc      *usecase.DocumentUsecase
	docs    *memDocs
	folders *memFolders
	store   *memStore
}

func newDocFixture(t *testing.T) *docFixture {
	t.Helper()
	f := &docFixture{docs: newMemDocs(), folders: newMemFolders(), store: newMemStore()}
	f.folders.docs = f.docs
	folderUC := usecase.NewFolderUsecase(f.folders, slog.Default())
	f.uc = usecase.NewDocumentUsecase(f.docs, folderUC, f.store, testMaxFileSize,
		[]string{"pdf", "txt", "png"}, slog.Default())
	return f
}

func uploadInput(name, content string) usecase.UploadInput {
	return usecase.UploadInput{
		OwnerID:  "u1",
		FileName: name,
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	}
}

// ---- Upload ----

func TestUpload_StoresFileInDefaultFolder(t *testing.T) {
	f := newDocFixture(t)

	in := uploadInput("Report.TXT", "hello world")
	in.Tags = []string{" q1 ", "", "Q1", "finance"}
	doc, err := f.uc.Upload(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "general", doc.FolderID)
	assert.Equal(t, "Report.TXT", doc.Name)
	assert.Equal(t, "txt", doc.Extension)
	assert.Equal(t, domain.DocumentTypeText, doc.DocumentType)
	assert.Equal(t, int64(11), doc.SizeBytes)
	assert.Equal(t, []string{"q1", "finance"}, doc.Tags)
	assert.True(t, strings.HasSuffix(doc.StoredName, ".txt"))
	assert.Equal(t, "hello world", string(f.store.objects[doc.StoredName]))
	assert.True(t, strings.HasPrefix(doc.MimeType, "text/plain"), "sniffed mime %q", doc.MimeType)
}

func TestUpload_KeepsDeclaredContentType(t *testing.T) {
	f := newDocFixture(t)

	in := uploadInput("scan.pdf", "%PDF-1.4 tiny")
	in.ContentType = "application/pdf"
	doc, err := f.uc.Upload(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.MimeType)
}

func TestUpload_OversizedWritesNothing(t *testing.T) {
	big := strings.Repeat("x", testMaxFileSize+1)

	t.Run("declared size", func(t *testing.T) {
		f := newDocFixture(t)
		_, err := f.uc.Upload(context.Background(), uploadInput("big.txt", big))
		assert.ErrorIs(t, err, domain.ErrFileTooLarge)
		assert.Empty(t, f.store.objects)
		assert.Empty(t, f.docs.byID)
	})

	t.Run("undeclared size", func(t *testing.T) {
		f := newDocFixture(t)
		in := uploadInput("big.txt", big)
		in.Size = 0
		_, err := f.uc.Upload(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrFileTooLarge)
		assert.Empty(t, f.store.objects)
	})

	t.Run("body limit", func(t *testing.T) {
		f := newDocFixture(t)
		body := http.MaxBytesReader(httptest.NewRecorder(), io.NopCloser(strings.NewReader(big)), 10)
		in := uploadInput("big.txt", "")
		in.Size, in.Content = 0, body
		_, err := f.uc.Upload(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrFileTooLarge)
		assert.Empty(t, f.store.objects)
	})
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*usecase.UploadInput)
		wantErr error
	}{
		{"disallowed extension", func(in *usecase.UploadInput) { in.FileName = "run.exe" }, domain.ErrFileTypeNotAllowed},
		{"no extension", func(in *usecase.UploadInput) { in.FileName = "README" }, domain.ErrFileTypeNotAllowed},
		{"empty file", func(in *usecase.UploadInput) { in.Content, in.Size = strings.NewReader(""), 0 }, domain.ErrEmptyFile},
		{"unknown folder id", func(in *usecase.UploadInput) { in.FolderID = "missing" }, domain.ErrFolderNotFound},
		{"unknown folder name", func(in *usecase.UploadInput) { in.FolderName = "Nope" }, domain.ErrFolderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDocFixture(t)
			in := uploadInput("notes.txt", "content")
			tt.mutate(&in)
			_, err := f.uc.Upload(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.store.objects)
		})
	}
}

func TestUpload_MissingFilename(t *testing.T) {
	f := newDocFixture(t)
	_, err := f.uc.Upload(context.Background(), uploadInput("  ", "content"))
	assert.Equal(t, "file", asValidation(t, err).Field)
}

func TestUpload_FolderByName(t *testing.T) {
	f := newDocFixture(t)
	folder, err := usecase.NewFolderUsecase(f.folders, slog.Default()).
		Create(context.Background(), usecase.CreateFolderInput{Name: "Receipts"})
	require.NoError(t, err)

	in := uploadInput("r.png", "\x89PNG\r\n\x1a\n")
	in.FolderName = "receipts"
	doc, err := f.uc.Upload(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, doc.FolderID)
}

func TestUpload_InsertFailureRemovesObject(t *testing.T) {
	f := newDocFixture(t)
	f.docs.createErr = errors.New("db down")

	_, err := f.uc.Upload(context.Background(), uploadInput("a.txt", "content"))
	require.Error(t, err)
	assert.Len(t, f.store.deleted, 1)
	assert.Empty(t, f.store.objects)
}

func TestUpload_StoreFailureCreatesNoRow(t *testing.T) {
	f := newDocFixture(t)
	f.store.saveErr = errors.New("disk full")

	_, err := f.uc.Upload(context.Background(), uploadInput("a.txt", "content"))
	require.Error(t, err)
	assert.Empty(t, f.docs.byID)
}

// ---- List ----

func TestList_CursorPagination(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	for i := range 5 {
		_, err := f.uc.Upload(ctx, uploadInput(fmt.Sprintf("f%d.txt", i), "x"))
		require.NoError(t, err)
	}

	var seen []string
	cursor := ""
	for page := 0; ; page++ {
		require.Less(t, page, 5, "pagination did not terminate")
		res, err := f.uc.List(ctx, usecase.ListDocumentsInput{OwnerID: "u1", Cursor: cursor, Limit: 2})
		require.NoError(t, err)
		for _, d := range res.Documents {
			seen = append(seen, d.Name)
		}
		if res.NextCursor == nil {
			break
		}
		cursor = *res.NextCursor
	}
	assert.Equal(t, []string{"f4.txt", "f3.txt", "f2.txt", "f1.txt", "f0.txt"}, seen)
}

func TestList_ClampsLimit(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	_, err := f.uc.List(ctx, usecase.ListDocumentsInput{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 21, f.docs.lastList.Limit)

	_, err = f.uc.List(ctx, usecase.ListDocumentsInput{OwnerID: "u1", Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 101, f.docs.lastList.Limit)
}

func TestList_InvalidCursor(t *testing.T) {
	f := newDocFixture(t)
	_, err := f.uc.List(context.Background(), usecase.ListDocumentsInput{OwnerID: "u1", Cursor: "%%%"})
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestList_CursorWithMalformedID(t *testing.T) {
	f := newDocFixture(t)
	cursor := base64.RawURLEncoding.EncodeToString([]byte(`{"c":"2026-03-01T12:00:00Z","i":"abc"}`))

	_, err := f.uc.List(context.Background(), usecase.ListDocumentsInput{OwnerID: "u1", Cursor: cursor})
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestList_MalformedFolderID(t *testing.T) {
	f := newDocFixture(t)
	_, err := f.uc.List(context.Background(), usecase.ListDocumentsInput{OwnerID: "u1", FolderID: "abc"})
	assert.Equal(t, "folder_id", asValidation(t, err).Field)
}

func TestAdvancedSearch_PassesFolderIDs(t *testing.T) {
	f := newDocFixture(t)
	id := "6f1c2a4e-3b5d-4c7e-9f80-1a2b3c4d5e6f"

	_, err := f.uc.AdvancedSearch(context.Background(), usecase.AdvancedSearchInput{OwnerID: "u1", FolderIDs: []string{id}})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, f.docs.lastQuery.FolderIDs)
}

// ---- Get / Update / Delete / Open ----

func TestDocument_OwnerScoped(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	doc, err := f.uc.Upload(ctx, uploadInput("mine.txt", "x"))
	require.NoError(t, err)

	_, err = f.uc.Get(ctx, doc.ID, "someone-else")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	_, _, err = f.uc.Open(ctx, doc.ID, "someone-else")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	assert.ErrorIs(t, f.uc.Delete(ctx, doc.ID, "someone-else"), domain.ErrDocumentNotFound)
	assert.Contains(t, f.store.objects, doc.StoredName)
}

func TestUpdate_ChangesFields(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	doc, err := f.uc.Upload(ctx, uploadInput("old.txt", "x"))
	require.NoError(t, err)
	folder, err := usecase.NewFolderUsecase(f.folders, slog.Default()).
		Create(ctx, usecase.CreateFolderInput{Name: "Archive"})
	require.NoError(t, err)

	got, err := f.uc.Update(ctx, doc.ID, "u1", usecase.UpdateDocumentInput{
		Name:     ptr(" new.txt "),
		Tags:     []string{"a", "A", "b"},
		FolderID: &folder.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "new.txt", got.Name)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, folder.ID, got.FolderID)
}

func TestUpdate_Rejections(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	doc, err := f.uc.Upload(ctx, uploadInput("old.txt", "x"))
	require.NoError(t, err)

	_, err = f.uc.Update(ctx, doc.ID, "u1", usecase.UpdateDocumentInput{Name: ptr("../x")})
	assert.Equal(t, "name", asValidation(t, err).Field)

	_, err = f.uc.Update(ctx, doc.ID, "u1", usecase.UpdateDocumentInput{FolderID: ptr("missing")})
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)
}

func TestDelete_RemovesRowAndObject(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	doc, err := f.uc.Upload(ctx, uploadInput("gone.txt", "x"))
	require.NoError(t, err)

	require.NoError(t, f.uc.Delete(ctx, doc.ID, "u1"))
	assert.Empty(t, f.docs.byID)
	assert.NotContains(t, f.store.objects, doc.StoredName)
}

func TestOpenStored(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	doc, err := f.uc.Upload(ctx, uploadInput("pub.txt", "public bytes"))
	require.NoError(t, err)

	got, obj, err := f.uc.OpenStored(ctx, doc.StoredName)
	require.NoError(t, err)
	defer obj.Body.Close()
	b, _ := io.ReadAll(obj.Body)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "public bytes", string(b))
	assert.Equal(t, doc.MimeType, obj.ContentType)

	delete(f.store.objects, doc.StoredName)
	_, _, err = f.uc.OpenStored(ctx, doc.StoredName)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

// ---- Search ----

func TestSearch_RequiresQuery(t *testing.T) {
	f := newDocFixture(t)
	_, err := f.uc.Search(context.Background(), "u1", "   ", 10)
	assert.Equal(t, "q", asValidation(t, err).Field)
}

func TestSearch_CaseInsensitiveName(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Invoice-March.pdf", "notes.txt"} {
		_, err := f.uc.Upload(ctx, uploadInput(name, "%PDF"))
		require.NoError(t, err)
	}

	got, err := f.uc.Search(ctx, "u1", "INVOICE", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Invoice-March.pdf", got[0].Name)
}

func TestAdvancedSearch_DatePresets(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	tests := map[string]time.Time{
		"24h":  now.Add(-24 * time.Hour),
		"7d":   now.AddDate(0, 0, -7),
		"30d":  now.AddDate(0, 0, -30),
		"year": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for preset, want := range tests {
		t.Run(preset, func(t *testing.T) {
			f := newDocFixture(t)
			f.uc.SetClock(func() time.Time { return now })

			_, err := f.uc.AdvancedSearch(context.Background(), usecase.AdvancedSearchInput{OwnerID: "u1", DatePreset: preset})
			require.NoError(t, err)
			require.NotNil(t, f.docs.lastQuery.CreatedFrom)
			assert.True(t, want.Equal(*f.docs.lastQuery.CreatedFrom), "from = %v, want %v", *f.docs.lastQuery.CreatedFrom, want)
		})
	}
}

func TestAdvancedSearch_ExplicitFromBeatsPreset(t *testing.T) {
	f := newDocFixture(t)
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.uc.AdvancedSearch(context.Background(), usecase.AdvancedSearchInput{
		OwnerID: "u1", DatePreset: "24h", From: &from,
	})
	require.NoError(t, err)
	assert.Equal(t, from, *f.docs.lastQuery.CreatedFrom)
}

func TestAdvancedSearch_SortDefaults(t *testing.T) {
	tests := []struct {
		sortBy, order string
		wantSort      repository.DocumentSort
		wantDesc      bool
	}{
		{"", "", repository.SortByDate, true},
		{"name", "", repository.SortByName, false},
		{"size", "", repository.SortBySize, true},
		{"date", "asc", repository.SortByDate, false},
		{"NAME", "desc", repository.SortByName, true},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy+"/"+tt.order, func(t *testing.T) {
			f := newDocFixture(t)
			_, err := f.uc.AdvancedSearch(context.Background(), usecase.AdvancedSearchInput{
				OwnerID: "u1", SortBy: tt.sortBy, Order: tt.order,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSort, f.docs.lastQuery.SortBy)
			assert.Equal(t, tt.wantDesc, f.docs.lastQuery.Descending)
		})
	}
}

func TestAdvancedSearch_NormalizesFilters(t *testing.T) {
	f := newDocFixture(t)
	res, err := f.uc.AdvancedSearch(context.Background(), usecase.AdvancedSearchInput{
		OwnerID: "u1",
		Query:   "  tax ",
		Types:   []string{".PDF", " docx", ""},
		Offset:  -5,
	})
	require.NoError(t, err)
	assert.Equal(t, "tax", f.docs.lastQuery.Query)
	assert.Equal(t, []string{"pdf", "docx"}, f.docs.lastQuery.Extensions)
	assert.Equal(t, 0, res.Offset)
	assert.Equal(t, 20, res.Limit)
}

func TestAdvancedSearch_Rejections(t *testing.T) {
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	tests := map[string]struct {
		in    usecase.AdvancedSearchInput
		field string
	}{
		"unknown preset": {usecase.AdvancedSearchInput{DatePreset: "decade"}, "date_preset"},
		"unknown sort":   {usecase.AdvancedSearchInput{SortBy: "owner"}, "sort_by"},
		"unknown order":  {usecase.AdvancedSearchInput{Order: "sideways"}, "order"},
		"inverted dates": {usecase.AdvancedSearchInput{From: &from, To: &to}, "from"},
		"inverted sizes": {usecase.AdvancedSearchInput{MinSize: ptr[int64](10), MaxSize: ptr[int64](1)}, "min_size"},
		"bad folder id":  {usecase.AdvancedSearchInput{FolderIDs: []string{"abc"}}, "folders"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newDocFixture(t)
			_, err := f.uc.AdvancedSearch(context.Background(), tt.in)
			assert.Equal(t, tt.field, asValidation(t, err).Field)
		})
	}
}
