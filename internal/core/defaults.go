package core

// DefaultIcon is used for categories without an icon of their own.
const DefaultIcon = "ic_category_default"

// DefaultCategories is the registry seeded on first use. These categories are protected
// from deletion.
func DefaultCategories() []Category {
	seed := []struct{ id, name string }{
		{"cash", "현금"},
		{"bank", "은행 예금"},
		{"stock", "주식"},
		{"fund", "펀드"},
		{"real_estate", "부동산"},
		{"crypto", "암호화폐"},
		{"other", "기타"},
	}
	out := make([]Category, len(seed))
	for i, s := range seed {
		icon := "ic_category_" + s.id
		out[i] = Category{
			ID:        s.id,
			Name:      s.name,
			Icon:      &icon,
			SortOrder: i,
			IsDefault: true,
		}
	}
	return out
}
