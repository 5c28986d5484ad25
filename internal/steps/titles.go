package steps

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// DeriveTitle produces a presentable default title from the first source file
// or the source link when no explicit title was given.
func DeriveTitle(files []string, sourceURL string) string {
	if len(files) > 0 {
		if title := titleFromName(filepath.Base(files[0])); title != "" {
			return title
		}
	}
	if raw := strings.TrimSpace(sourceURL); raw != "" {
		if parsed, err := url.Parse(raw); err == nil {
			if title := titleFromName(path.Base(parsed.Path)); title != "" {
				return title
			}
		}
		return "Linked Video"
	}
	return "Untitled Project"
}

func titleFromName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || name == "/" {
		return ""
	}
	return titleCaser.String(name)
}
