package placeholder

import "github.com/dpshade/spark-prompt/internal/models"

func colorBanks() models.BankMap {
	return models.BankMap{
		"color": {
			Label:    models.LocalizedText{"cn": "颜色", "en": "Color"},
			Category: "visual",
			Options: []models.LocalizedText{
				{"cn": "红", "en": "red"},
				{"cn": "蓝", "en": "blue"},
			},
		},
		"style": {
			Label:    models.LocalizedText{"cn": "风格"},
			Category: "missing-category",
			Options: []models.LocalizedText{
				{"cn": "复古"},
			},
		},
		"empty": {
			Label:    models.LocalizedText{"en": "Empty"},
			Category: "visual",
		},
	}
}

func colorCategories() models.CategoryMap {
	return models.CategoryMap{
		"visual": {
			ID:    "visual",
			Label: models.LocalizedText{"cn": "视觉", "en": "Visual"},
			Color: "blue",
		},
	}
}
