// Package classifier infers the anxiety driver from free text with keyword rules.
//
// Rules are checked in a fixed order: job loss, then value threat, then skill
// erosion. Text matching none of them is classified as the default driver.
package classifier

import (
	"strings"

	"github.com/ai-anxiety-coach/server/internal/coach/model"
)

type rule struct {
	driver   model.Driver
	keywords []string
}

var rules = []rule{
	{
		driver: model.DriverJobLoss,
		keywords: []string{
			"裁员", "失业", "岗位消失", "取代", "替代", "失去工作",
			"laid off", "layoff", "lose my job", "losing my job", "unemploy", "replace",
		},
	},
	{
		driver: model.DriverValueThreat,
		keywords: []string{
			"不重要", "没价值", "无用", "没人需要", "被边缘",
			"worthless", "useless", "not needed", "irrelevant", "sidelined",
		},
	},
	{
		driver: model.DriverSkillErosion,
		keywords: []string{
			"依赖", "退化", "变笨", "不用脑", "思考能力下降",
			"dependent", "rely on", "dumber", "deskill", "lose my skills",
		},
	},
}

// Classify returns the driver whose keywords first match text.
func Classify(text string) model.Driver {
	t := strings.ToLower(text)
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(t, k) {
				return r.driver
			}
		}
	}
	return model.DefaultDriver
}
