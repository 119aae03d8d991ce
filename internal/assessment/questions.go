package assessment

// Question is one Likert item shown to the user.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Questionnaire is the full intake shown before the chat.
type Questionnaire struct {
	Scale       []string   `json:"scale"`
	Neuroticism []Question `json:"neuroticism"`
	JobAnxiety  []Question `json:"job_anxiety"`
}

// LikertLabels names the answers LikertMin..LikertMax in order.
var LikertLabels = []string{"非常不同意", "不同意", "一般", "同意", "非常同意"}

var NeuroticismQuestions = []Question{
	{ID: "N1", Text: "面对不确定的新技术时，我会紧张。"},
	{ID: "N2", Text: "我经常担心自己跟不上变化。"},
	{ID: "N3", Text: "技术出错会让我长时间不安。"},
	{ID: "N4", Text: "我容易反复想潜在风险。"},
	{ID: "N5", Text: "面对复杂系统，我倾向回避而不是尝试。"},
	{ID: "N6", Text: "我很难忽略对不利未来的担忧。"},
}

var JobAnxietyQuestions = []Question{
	{ID: "J1", Text: "我害怕 AI 会取代人类的工作。"},
	{ID: "J2", Text: "我担心 AI 会取代类似我这样的岗位。"},
	{ID: "J3", Text: "我担心使用 AI 会让我依赖并削弱推理能力。"},
	{ID: "J4", Text: "我担心 AI 会让人更懒、更依赖。"},
}

// Intake returns the questionnaire in display order.
func Intake() Questionnaire {
	return Questionnaire{
		Scale:       LikertLabels,
		Neuroticism: NeuroticismQuestions,
		JobAnxiety:  JobAnxietyQuestions,
	}
}
