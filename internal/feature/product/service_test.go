package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"casa-comfort/internal/domain"
	"casa-comfort/internal/repo"
	"casa-comfort/pkg/utils"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := "file:" + utils.NewID() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))
	// 缓存传 nil：走直查库的分支
	return NewService(repo.NewProductRepo(db), nil, 0, zap.NewNop())
}

func validInput() Input {
	return Input{
		Name:        "Cozy Knit Blanket",
		Description: "Soft, warm knit blanket perfect for chilly evenings.",
		Price:       4999,
		Image:       "https://images.example.com/blanket.jpg",
		Category:    "Bedding",
	}
}

func TestInputValidation(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*Input)
		wantMsg string
	}{
		{"short name", func(in *Input) { in.Name = "ab" }, "El nombre debe tener al menos 3 caracteres"},
		{"short description", func(in *Input) { in.Description = "corta" }, "La descripción debe tener al menos 10 caracteres"},
		{"zero price", func(in *Input) { in.Price = 0 }, "El precio debe ser mayor a 0"},
		{"negative price", func(in *Input) { in.Price = -100 }, "El precio debe ser mayor a 0"},
		{"bad image url", func(in *Input) { in.Image = "not-a-url" }, "Debe ser una URL válida"},
		{"short category", func(in *Input) { in.Category = "x" }, "La categoría debe tener al menos 2 caracteres"},
		{"whitespace name", func(in *Input) { in.Name = "  a  " }, "El nombre debe tener al menos 3 caracteres"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := s.Create(ctx, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantMsg, verr.Msg)
		})
	}
}

func TestCRUD(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	ctx := context.Background()

	p, err := s.Create(ctx, validInput())
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	got, err := s.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cozy Knit Blanket", got.Name)

	_, err = s.Get(9999)
	assert.ErrorIs(t, err, ErrProductNotFound)

	in := validInput()
	in.Name = "Chunky Knit Blanket"
	in.Price = 5499
	updated, err := s.Update(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Chunky Knit Blanket", updated.Name)
	assert.Equal(t, int64(5499), updated.Price)

	_, err = s.Update(ctx, 9999, validInput())
	assert.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, s.Delete(ctx, p.ID))
	assert.ErrorIs(t, s.Delete(ctx, p.ID), ErrProductNotFound)

	ps, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestListOrderedByID(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	ctx := context.Background()

	names := []string{"Cozy Knit Blanket", "Ceramic Vase Set", "Kitchen Utensil Set"}
	for _, n := range names {
		in := validInput()
		in.Name = n
		_, err := s.Create(ctx, in)
		require.NoError(t, err)
	}

	ps, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 3)
	for i, p := range ps {
		assert.Equal(t, names[i], p.Name)
	}
}

func TestCategories_DedupKeepsFirstCasing(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	ctx := context.Background()

	for _, cat := range []string{"Decor", "decor", "Kitchen", "DECOR", "Bedding"} {
		in := validInput()
		in.Category = cat
		_, err := s.Create(ctx, in)
		require.NoError(t, err)
	}

	cats, err := s.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"Decor", "Kitchen", "Bedding"}, cats)
}
