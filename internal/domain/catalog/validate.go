package catalog

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
)

const (
	MaxNameLength = 255
	MaxSlugLength = 50
)

var allowedExecutableExtensions = []string{"exe"}

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

const msgRequired = "This field is required."

// ValidateCategory checks field shape. Uniqueness is checked against storage by the caller.
func ValidateCategory(c *Category) validation.Errors {
	errs := validation.Errors{}
	checkName(errs, "name", c.Name)
	switch {
	case strings.TrimSpace(c.Slug) == "":
		errs.Add("slug", msgRequired)
	case utf8.RuneCountInString(c.Slug) > MaxSlugLength:
		errs.Add("slug", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxSlugLength))
	case !slugPattern.MatchString(c.Slug):
		errs.Add("slug", `Enter a valid "slug" consisting of letters, numbers, underscores or hyphens.`)
	}
	return errs
}

// ValidateProduct checks every scalar field. File checks happen when a file is attached.
func ValidateProduct(p *Product) validation.Errors {
	errs := validation.Errors{}
	checkName(errs, "name", p.Name)
	if strings.TrimSpace(p.Description) == "" {
		errs.Add("description", msgRequired)
	}
	if p.CategoryID == 0 {
		errs.Add("category", msgRequired)
	}
	if msg := money.Check(p.Price); msg != "" {
		errs.Add("price", msg)
	}
	return errs
}

// ValidateExecutableName enforces the allowed extension list for executable uploads.
func ValidateExecutableName(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	for _, allowed := range allowedExecutableExtensions {
		if ext == allowed {
			return ""
		}
	}
	return fmt.Sprintf("File extension %q is not allowed. Allowed extensions are: %s.",
		ext, strings.Join(allowedExecutableExtensions, ", "))
}

// ValidateImageType accepts any sniffed image/* content type.
func ValidateImageType(contentType string) string {
	if strings.HasPrefix(contentType, "image/") {
		return ""
	}
	return "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
}

func checkName(errs validation.Errors, field, v string) {
	switch {
	case strings.TrimSpace(v) == "":
		errs.Add(field, msgRequired)
	case utf8.RuneCountInString(v) > MaxNameLength:
		errs.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", MaxNameLength))
	}
}
