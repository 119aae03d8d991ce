package llm

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/ai-anxiety-coach/server/internal/coach/classifier"
	"github.com/ai-anxiety-coach/server/internal/coach/model"
)

// Markers the substitute looks for in earlier assistant turns to know which
// step of the scripted conversation it is on.
const (
	worstOutcomeMarker = "最害怕的结果是什么"
	classifyMarker     = "更像哪一种"
	// legacyClassifyMarker is kept so older transcripts still advance.
	legacyClassifyMarker = "岗位消失/不重要/退化"

	maxPrefixErrorRunes = 80
)

const groundingReply = "我听到你在担心 AI 会影响你的工作，这种不安很真实。\n" +
	"我们先把担忧落到一个具体问题上：你最害怕的结果是什么？" +
	"（例如：失业、收入下降、价值感受损、能力退化）"

const classifyReply = "我明白了，你描述的“最坏结果”已经很具体了。\n" +
	"为了更精准地帮你，我们把它归到一种主导类型里（选一个最像的）：\n" +
	"A 岗位消失（job_loss）\n" +
	"B 变得不重要/不被需要（value_threat）\n" +
	"C 依赖 AI 导致能力退化（skill_erosion）\n" +
	"你觉得更像哪一种（A/B/C）？"

var microActionReplies = map[model.Driver]string{
	model.DriverJobLoss: "你现在面对的是“不确定性→灾难化想象”的自然反应，不代表结局已定。\n" +
		"我们不做预测，先做一件能恢复控制感的小事（10 分钟）：\n" +
		"1) 写下你工作流程中 3 个关键环节\n" +
		"2) 标注每个环节 AI 可替代程度（低/中/高）\n" +
		"3) 选 1 个“低可替代”环节写一句：‘这个环节的价值在于____’\n" +
		"你愿意从哪 3 个环节开始写？",
	model.DriverSkillErosion: "你担心“依赖→退化”，这非常合理。关键不是不用 AI，而是设定协作边界。\n" +
		"10 分钟微行动：\n" +
		"1) 选一个小问题，你先写 3 条推理要点\n" +
		"2) 让 AI 扩写成完整论证\n" +
		"3) 你删 1 句不同意的、补 1 句你认为关键的\n" +
		"你想用哪个小问题来做这次练习？",
	model.DriverValueThreat: "你更像是“价值感被威胁”的担忧：担心自己变得不重要。\n" +
		"10 分钟微行动：\n" +
		"1) 写下最近一次别人需要你‘判断/沟通/取舍’的具体事件（各 1 句）\n" +
		"2) 写一句：‘AI 可以帮我____，但这类价值仍需要我来____’\n" +
		"你愿意写哪个事件？",
}

// Substitute produces the offline reply for a transcript. It is a pure
// function of the transcript and errText: ask for the worst outcome, then
// ask for a driver, then give a driver-specific 10-minute micro-action.
// A non-empty errText is shown as a prefix.
func Substitute(messages []*schema.Message, errText string) string {
	prefix := ""
	if errText != "" {
		prefix = "（LLM调用失败：" + truncateRunes(errText, maxPrefixErrorRunes) + "）"
	}

	var askedWorst, askedDriver bool
	for _, m := range messages {
		if m == nil || m.Role != schema.Assistant {
			continue
		}
		if strings.Contains(m.Content, worstOutcomeMarker) {
			askedWorst = true
		}
		if strings.Contains(m.Content, classifyMarker) || strings.Contains(m.Content, legacyClassifyMarker) {
			askedDriver = true
		}
	}

	switch {
	case !askedWorst:
		return prefix + groundingReply
	case !askedDriver:
		return prefix + classifyReply
	}

	driver := classifier.Classify(model.UserText(messages))
	return prefix + microActionReplies[driver]
}
