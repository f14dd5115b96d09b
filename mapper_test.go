package rowmap

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// recoverMapping runs f and returns the value it panicked with, if any.
func recoverMapping(f func()) (v any) {
	defer func() { v = recover() }()
	f()
	return nil
}

// countingRow records lookups and closes.
type countingRow struct {
	MapRow
	gets   []string
	closed int
}

func (r *countingRow) Get(column string, dst any) error {
	r.gets = append(r.gets, column)
	return r.MapRow.Get(column, dst)
}

func (r *countingRow) Close() error {
	r.closed++
	return nil
}

func TestTryFromRow_Success(t *testing.T) {
	s := userSchema(t)
	row := MapRow{"id": int64(5), "name": "Ada", "email": nil}

	got, err := s.TryFromRowRef(row)
	require.NoError(t, err)
	assert.Equal(t, user{ID: 5, Name: "Ada"}, got)

	row["email"] = []byte("ada@example.com")
	got, err = s.TryFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, user{ID: 5, Name: "Ada", Email: strPtr("ada@example.com")}, got)

	assert.Equal(t, got, s.FromRow(row), "panicking path returns the identical record")
	assert.Equal(t, got, s.FromRowRef(row))
}

func TestTryFromRow_MissingColumn(t *testing.T) {
	s := userSchema(t)
	row := MapRow{"name": "Ada", "email": nil}

	got, err := s.TryFromRow(row)
	assert.Zero(t, got)
	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ColumnNotFound, me.Kind)
	assert.Equal(t, "id", me.Column)
	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.ErrorIs(t, err, &MappingError{Kind: ColumnNotFound, Column: "id"})
}

func TestTryFromRow_BadValue(t *testing.T) {
	s := userSchema(t)

	_, err := s.TryFromRow(MapRow{"id": "not-a-number", "name": "Ada", "email": nil})
	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ConversionFailed, me.Kind)
	assert.Equal(t, "id", me.Column)
	assert.NotErrorIs(t, err, ErrColumnNotFound)

	_, err = s.TryFromRow(MapRow{"id": true, "name": "Ada", "email": nil})
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ColumnTypeMismatch, me.Kind)
	assert.Equal(t, "id", me.Column)
	assert.Equal(t, "int64", me.Expected)
}

func TestTryFromRow_NullIntoNonNullable(t *testing.T) {
	s := userSchema(t)
	_, err := s.TryFromRow(MapRow{"id": int64(1), "name": nil, "email": nil})
	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ConversionFailed, me.Kind)
	assert.Equal(t, "name", me.Column)
	assert.ErrorIs(t, err, ErrNullValue)
}

func TestTryFromRow_FirstFailureWins(t *testing.T) {
	s := userSchema(t)
	// id and name both fail; email would succeed.
	row := &countingRow{MapRow: MapRow{"id": 1.5, "email": nil}}

	_, err := s.TryFromRowRef(row)
	assert.ErrorIs(t, err, &MappingError{Kind: ColumnTypeMismatch, Column: "id"})
	assert.Equal(t, []string{"id"}, row.gets, "remaining fields are not attempted")
}

func TestTryFromRow_EachFieldOnceInOrder(t *testing.T) {
	s := userSchema(t)
	row := &countingRow{MapRow: MapRow{"email": nil, "name": "Ada", "id": int64(1)}}

	_, err := s.TryFromRowRef(row)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "email"}, row.gets)
}

func TestTryFromRow_Deterministic(t *testing.T) {
	s := userSchema(t)
	good := MapRow{"id": int64(5), "name": "Ada", "email": "a@b.c"}
	bad := MapRow{"id": int64(5), "email": "a@b.c"}

	a, errA := s.TryFromRowRef(good)
	b, errB := s.TryFromRowRef(good)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b, "records differ:\n%s\n%s", spew.Sdump(a), spew.Sdump(b))

	_, errA = s.TryFromRowRef(bad)
	_, errB = s.TryFromRowRef(bad)
	assert.Equal(t, errA, errB)
}

func TestConsumingClosesRow(t *testing.T) {
	s := userSchema(t)
	ok := MapRow{"id": int64(1), "name": "Ada", "email": nil}

	row := &countingRow{MapRow: ok}
	_, err := s.TryFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, 1, row.closed)

	row = &countingRow{MapRow: MapRow{}}
	_, err = s.TryFromRow(row)
	require.Error(t, err)
	assert.Equal(t, 1, row.closed, "closed on failure too")

	row = &countingRow{MapRow: ok}
	_ = s.FromRow(row)
	assert.Equal(t, 1, row.closed)
}

func TestBorrowingLeavesRowUsable(t *testing.T) {
	type contact struct {
		Email *string `db:"email"`
		Name  string  `db:"name"`
	}
	row := &countingRow{MapRow: MapRow{"id": int64(3), "name": "Ada", "email": "ada@example.com"}}

	u, err := userSchema(t).TryFromRowRef(row)
	require.NoError(t, err)
	assert.Equal(t, 0, row.closed)

	c, err := TryFromRowRef[contact](row)
	require.NoError(t, err)
	assert.Equal(t, u.Name, c.Name)
	assert.Equal(t, u.Email, c.Email)

	_ = FromRowRef[contact](row)
	assert.Equal(t, 0, row.closed)
}

func TestFromRow_PanicsWithMappingError(t *testing.T) {
	s := userSchema(t)

	v := recoverMapping(func() { s.FromRow(MapRow{"name": "Ada", "email": nil}) })
	me, ok := v.(*MappingError)
	require.True(t, ok, "panic value %#v", v)
	assert.Equal(t, ColumnNotFound, me.Kind)
	assert.Equal(t, "id", me.Column)

	assert.PanicsWithError(t, `rowmap: column "id": column not found`, func() {
		s.FromRowRef(MapRow{"email": nil})
	})
}

func TestPackageLevel_UsesReflectedSchema(t *testing.T) {
	row := MapRow{"id": int64(5), "name": "Ada", "email": nil}

	got, err := TryFromRow[user](row)
	require.NoError(t, err)
	assert.Equal(t, user{ID: 5, Name: "Ada"}, got)
	assert.Equal(t, got, FromRow[user](row))

	_, err = TryFromRow[user](MapRow{"id": int64(5)})
	assert.ErrorIs(t, err, &MappingError{Kind: ColumnNotFound, Column: "name"})
}

func TestPackageLevel_SchemaError(t *testing.T) {
	row := &countingRow{MapRow: MapRow{"x": int64(1)}}

	_, err := TryFromRow[int](row)
	assert.ErrorIs(t, err, ErrNotStruct)
	assert.Empty(t, row.gets)
	assert.Equal(t, 1, row.closed)

	_, err = TryFromRowRef[int](row)
	assert.ErrorIs(t, err, ErrNotStruct)
	assert.Panics(t, func() { FromRow[int](row) })
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := userSchema(t)
	s := base.WithLogger(log)

	_, err := s.TryFromRow(MapRow{"name": "Ada"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "mapping failed")
	assert.Contains(t, buf.String(), "column=id")
	assert.Contains(t, buf.String(), `kind="column not found"`)

	buf.Reset()
	assert.Panics(t, func() { s.FromRow(MapRow{}) })
	assert.Contains(t, buf.String(), "level=ERROR")

	buf.Reset()
	_, _ = base.TryFromRow(MapRow{})
	assert.Empty(t, buf.String(), "WithLogger returns a copy")
}

func TestConcurrentMappingSameRow(t *testing.T) {
	s := userSchema(t)
	row := MapRow{"id": int64(5), "name": "Ada", "email": "a@b.c"}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := s.TryFromRowRef(row)
			if err == nil && u.ID != 5 {
				err = errors.New("wrong record")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
