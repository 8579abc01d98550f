package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateCategory(t *testing.T) {
	tests := []struct {
		name       string
		category   Category
		wantFields []string
	}{
		{"valid", Category{Name: "Electronics", Slug: "electronics"}, nil},
		{"missing both", Category{}, []string{"name", "slug"}},
		{"bad slug", Category{Name: "Home", Slug: "home & garden"}, []string{"slug"}},
		{"long name", Category{Name: strings.Repeat("x", 256), Slug: "x"}, []string{"name"}},
		{"long slug", Category{Name: "x", Slug: strings.Repeat("s", 51)}, []string{"slug"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateCategory(&tt.category)
			assert.Len(t, errs, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestValidateProduct(t *testing.T) {
	valid := Product{CategoryID: 1, Name: "Widget", Description: "A widget", Price: decimal.RequireFromString("10.00")}
	assert.Empty(t, ValidateProduct(&valid))

	bad := valid
	bad.Price = decimal.RequireFromString("1.999")
	bad.CategoryID = 0
	errs := ValidateProduct(&bad)
	assert.Contains(t, errs, "price")
	assert.Contains(t, errs, "category")
}

func TestValidateExecutableName(t *testing.T) {
	assert.Empty(t, ValidateExecutableName("setup.exe"))
	assert.Empty(t, ValidateExecutableName("SETUP.EXE"))
	assert.Equal(t, `File extension "zip" is not allowed. Allowed extensions are: exe.`, ValidateExecutableName("bundle.zip"))
	assert.NotEmpty(t, ValidateExecutableName("noext"))
}

func TestValidateImageType(t *testing.T) {
	assert.Empty(t, ValidateImageType("image/png"))
	assert.NotEmpty(t, ValidateImageType("application/octet-stream"))
}

func TestParseOrdering(t *testing.T) {
	got := ParseOrdering("-price, created_at,name,,-stock")
	assert.Equal(t, []OrderField{
		{Field: OrderByPrice, Desc: true},
		{Field: OrderByCreatedAt},
	}, got)
	assert.Empty(t, ParseOrdering(""))
}
