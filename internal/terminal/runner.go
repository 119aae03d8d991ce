// Package terminal walks one coaching session interactively on a terminal.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ai-anxiety-coach/server/internal/assessment"
	"github.com/ai-anxiety-coach/server/internal/coach/model"
	"github.com/ai-anxiety-coach/server/internal/coach/session"
)

// EndChatCommands finish the chat stage.
var EndChatCommands = []string{"/done", "/结束"}

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

type Runner struct {
	svc *session.Service
	in  *bufio.Scanner
	out io.Writer
}

func NewRunner(svc *session.Service, in io.Reader, out io.Writer) *Runner {
	return &Runner{svc: svc, in: bufio.NewScanner(in), out: out}
}

// Run goes through assessment, chat, summary, actions and outcome once.
// The session is removed when Run returns.
func (r *Runner) Run(ctx context.Context) error {
	state, err := r.svc.Create(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.svc.Reset(context.WithoutCancel(ctx), state.ID) }()

	r.printf("%s\n", bold("AI 工作替代焦虑 · 陪伴与微行动"))
	r.printf("LLM 模式：%s\n\n", r.svc.Mode())

	in, err := r.askAssessment()
	if err != nil {
		return err
	}
	state, err = r.svc.SubmitAssessment(ctx, state.ID, in)
	if err != nil {
		return err
	}
	r.printf("\n评估结果：你当前的 AI 工作替代焦虑强度为 %s。数值越高表示当前焦虑体验越强烈，但这不代表结论或预测。\n",
		bold(fmt.Sprintf("%d/10", state.Intensity)))

	if err := r.chat(ctx, state.ID); err != nil {
		return err
	}

	confirmed, err := r.askIntensity("再次确认你当前的 AI 工作替代焦虑强度", state.Intensity)
	if err != nil {
		return err
	}
	state, err = r.svc.Summarize(ctx, state.ID, &confirmed)
	if err != nil {
		return err
	}
	r.printSummary(state)

	cards, err := r.svc.Actions(ctx, state.ID)
	if err != nil {
		return err
	}
	card, err := r.pickAction(cards)
	if err != nil {
		return err
	}

	done, err := r.askYesNo("我完成了（或至少开始做了）？(y/n)")
	if err != nil {
		return err
	}
	after, err := r.askIntensity("做完后，现在你的焦虑强度是多少", confirmed)
	if err != nil {
		return err
	}
	outcome, err := r.svc.RecordOutcome(ctx, state.ID, session.OutcomeInput{
		ActionTitle: card.Title,
		Completed:   done,
		After:       after,
	})
	if err != nil {
		return err
	}
	r.printOutcome(outcome)
	return nil
}

func (r *Runner) askAssessment() (session.AssessmentInput, error) {
	var in session.AssessmentInput
	r.printf("%s\n", cyan("基础状态评估（6题）"))
	for i, q := range assessment.NeuroticismQuestions {
		v, err := r.askLikert(i+1, q)
		if err != nil {
			return in, err
		}
		in.Neuroticism = append(in.Neuroticism, v)
	}

	r.printf("%s\n", cyan("AI工作替代焦虑评估（4题）"))
	for i, q := range assessment.JobAnxietyQuestions {
		v, err := r.askLikert(i+1, q)
		if err != nil {
			return in, err
		}
		in.JobAnxiety = append(in.JobAnxiety, v)
	}

	r.printf("你的角色/职业（例如：产品经理/设计师/学生，可留空）：")
	role, ok := r.readLine()
	if !ok {
		return in, io.ErrUnexpectedEOF
	}
	in.Role = role
	return in, nil
}

func (r *Runner) askLikert(n int, q assessment.Question) (int, error) {
	for {
		r.printf("%d. %s [%d-%d]：", n, q.Text, assessment.LikertMin, assessment.LikertMax)
		line, ok := r.readLine()
		if !ok {
			return 0, io.ErrUnexpectedEOF
		}
		v, err := strconv.Atoi(line)
		if err == nil && v >= assessment.LikertMin && v <= assessment.LikertMax {
			return v, nil
		}
		r.printf("%s\n", yellow(fmt.Sprintf("请输入 %d 到 %d 之间的整数。", assessment.LikertMin, assessment.LikertMax)))
	}
}

func (r *Runner) chat(ctx context.Context, id string) error {
	r.printf("\n接下来，将由聊天机器人和你沟通这种焦虑情绪。输入 %s 结束对话。\n", strings.Join(EndChatCommands, " 或 "))
	for {
		r.printf("%s ", bold("你："))
		line, ok := r.readLine()
		if !ok || isEndCommand(line) {
			return nil
		}
		if line == "" {
			continue
		}

		turn, err := r.svc.SendMessage(ctx, id, line)
		if err != nil {
			return err
		}
		if turn.Error != "" {
			r.printf("%s\n", red("LLM 调用失败："+turn.Error))
		}
		r.printf("%s %s\n", green("教练："), turn.Reply)
	}
}

func isEndCommand(line string) bool {
	for _, c := range EndChatCommands {
		if strings.EqualFold(line, c) {
			return true
		}
	}
	return false
}

// askIntensity reads 0..10; an empty line keeps def.
func (r *Runner) askIntensity(label string, def int) (int, error) {
	for {
		r.printf("%s（0–10，回车保持 %d）：", label, def)
		line, ok := r.readLine()
		if !ok {
			return 0, io.ErrUnexpectedEOF
		}
		if line == "" {
			return def, nil
		}
		v, err := strconv.Atoi(line)
		if err == nil && v >= 0 && v <= 10 {
			return v, nil
		}
		r.printf("%s\n", yellow("请输入 0 到 10 之间的整数。"))
	}
}

func (r *Runner) askYesNo(label string) (bool, error) {
	r.printf("%s ", label)
	line, ok := r.readLine()
	if !ok {
		return false, io.ErrUnexpectedEOF
	}
	switch strings.ToLower(line) {
	case "y", "yes", "是", "1":
		return true, nil
	}
	return false, nil
}

func (r *Runner) printSummary(state *model.SessionState) {
	s := state.Summary
	if s == nil {
		return
	}
	if s.LastError != "" {
		r.printf("%s\n", red("LLM 调用失败："+s.LastError))
	}
	r.printf("\n%s\n", bold("对话总结"))
	r.printf("主导焦虑类型（driver）：%s\n", s.Driver)
	r.printf("不良思维模式：\n")
	for _, t := range s.UnhelpfulThoughts {
		r.printf("- %s\n", t)
	}
	r.printf("纠偏观点：%s\n", s.Reframe)
	r.printf("\n个性化参数：神经质风格 %s ｜担忧类型 %s\n", bold(state.Band), bold(state.Driver))
	r.printf("我们不解决未来，只做一件小事来恢复控制感。完成即可算成功。\n")
}

func (r *Runner) pickAction(cards []model.ActionCard) (model.ActionCard, error) {
	if len(cards) == 0 {
		return model.ActionCard{}, fmt.Errorf("no action cards available")
	}
	r.printf("\n%s\n", cyan("选择一个你愿意现在就做的行动："))
	for i, c := range cards {
		r.printf("%d) %s（%d分钟）\n", i+1, c.Title, c.TimeMinutes)
	}

	pick := 0
	for {
		r.printf("编号（回车选 1）：")
		line, ok := r.readLine()
		if !ok {
			return model.ActionCard{}, io.ErrUnexpectedEOF
		}
		if line == "" {
			break
		}
		v, err := strconv.Atoi(line)
		if err == nil && v >= 1 && v <= len(cards) {
			pick = v - 1
			break
		}
		r.printf("%s\n", yellow(fmt.Sprintf("请输入 1 到 %d。", len(cards))))
	}

	c := cards[pick]
	r.printf("\n%s\n", bold(c.Title))
	r.printf("目标：%s\n预计用时：%d 分钟\n步骤：\n", c.Goal, c.TimeMinutes)
	for i, step := range c.Steps {
		r.printf("%d. %s\n", i+1, step)
	}
	r.printf("完成标准：%s\n卡住时：%s\n\n", c.SuccessCriteria, c.FallbackIfStuck)
	return c, nil
}

func (r *Runner) printOutcome(o *model.Outcome) {
	r.printf("\n前测：%d\n后测：%d\n变化：%+d\n", o.Before, o.After, o.Delta)
	if o.Improved {
		r.printf("%s\n", green("本次达到成功标准之一：焦虑强度下降 ≥ 1"))
	}
	r.printf("谢谢你完成一次行动。\n")
}

func (r *Runner) readLine() (string, bool) {
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}
