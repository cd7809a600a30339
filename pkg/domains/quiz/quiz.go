// Package quiz is the quiz-master vertical: LLM-generated multiple-choice
// questions, deterministic grading and a running score kept in session
// context.
package quiz

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/decision"
	"github.com/parthardas/helpdesk/pkg/dispatch"
	"github.com/parthardas/helpdesk/pkg/domains"
	"github.com/parthardas/helpdesk/pkg/handler"
	"github.com/parthardas/helpdesk/pkg/llm"
)

// Name is the routing domain identifier.
const Name = "quiz"

// Question is one multiple-choice question carried in session context
// while it awaits an answer.
type Question struct {
	Text        string            `json:"text"`
	Options     map[string]string `json:"options"`
	Answer      string            `json:"answer"`
	Explanation string            `json:"explanation"`
}

// Config assembles the quiz bundle.
type Config struct {
	// Provider generates questions. When nil a small built-in bank is
	// used instead.
	Provider llm.Provider

	MaxSteps int
	Logger   zerolog.Logger
}

// Rules is the priority-ordered keyword routing table. Anything that is
// not a request for a question or the score is treated as an answer.
func Rules() []decision.Rule {
	return []decision.Rule{
		{Keywords: []string{"score", "how am i doing"}, Label: "score"},
		{Keywords: []string{"next", "question", "quiz", "start", "begin"}, Label: "ask"},
	}
}

// New assembles the quiz domain bundle.
func New(cfg Config) (*domains.Bundle, error) {
	reg := handler.NewRegistry()
	for _, h := range []handler.Handler{
		askHandler(cfg.Provider),
		gradeHandler(),
		scoreHandler(),
	} {
		if err := reg.Register(h); err != nil {
			return nil, err
		}
	}

	decider, keyword, err := domains.NewDecider(cfg.Provider, reg, Rules(), "grade", cfg.Logger)
	if err != nil {
		return nil, err
	}

	loop, err := dispatch.New(dispatch.Config{
		Registry: reg,
		Decider:  decider,
		Domain:   Name,
		MaxSteps: cfg.MaxSteps,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &domains.Bundle{Name: Name, Registry: reg, Loop: loop, Keyword: keyword}, nil
}

const askPrompt = `You are a quiz master. Generate one multiple-choice question
for an intermediate learner. Do not repeat any of the previous questions.

Format it exactly like this:

Question: <question text>
A. <option A>
B. <option B>
C. <option C>
D. <option D>
Answer: <correct option letter only>
Explanation: <short explanation>`

func askHandler(provider llm.Provider) handler.Handler {
	return handler.Func("ask", "pose the next multiple-choice question", true,
		func(ctx context.Context, state *conversation.State) (conversation.Update, error) {
			previous := previousQuestions(state)

			q, err := nextQuestion(ctx, provider, previous)
			if err != nil {
				return conversation.Update{}, err
			}

			return conversation.Update{
				Response: renderQuestion(q, questionCount(state)+1),
				Context: map[string]any{
					"quiz_current":       q,
					"previous_questions": append(previous, q.Text),
				},
			}, nil
		})
}

func gradeHandler() handler.Handler {
	// Non-terminal: with no question pending it hands control to ask.
	return handler.Func("grade", "grade the answer to the pending question", false,
		func(_ context.Context, state *conversation.State) (conversation.Update, error) {
			q, ok := state.Context["quiz_current"].(Question)
			if !ok || q.Answer == "" {
				return conversation.Update{RouteTo: "ask"}, nil
			}

			selected := extractChoice(state.UserInput)
			if selected == "" {
				return conversation.Update{
					Response: "Please answer with A, B, C or D.",
					End:      true,
				}, nil
			}

			score := currentScore(state)
			count := questionCount(state) + 1

			var verdict string
			if selected == q.Answer {
				score++
				verdict = "Correct!"
			} else {
				verdict = fmt.Sprintf("Incorrect. The correct answer is %s.", q.Answer)
			}

			return conversation.Update{
				Response: fmt.Sprintf("%s\nExplanation: %s\nScore: %d / %d\nSay \"next\" for another question.",
					verdict, q.Explanation, score, count),
				Context: map[string]any{
					"quiz_current": Question{},
					"quiz_score":   score,
					"quiz_count":   count,
				},
				End: true,
			}, nil
		})
}

func scoreHandler() handler.Handler {
	return handler.Func("score", "report the running score", true,
		func(_ context.Context, state *conversation.State) (conversation.Update, error) {
			return conversation.Update{
				Response: fmt.Sprintf("Score: %d / %d", currentScore(state), questionCount(state)),
			}, nil
		})
}

func previousQuestions(state *conversation.State) []string {
	prev, _ := state.Context["previous_questions"].([]string)
	return prev
}

func currentScore(state *conversation.State) int {
	if v, ok := state.Context["quiz_score"].(int); ok {
		return v
	}
	return 0
}

func questionCount(state *conversation.State) int {
	if v, ok := state.Context["quiz_count"].(int); ok {
		return v
	}
	return 0
}

func renderQuestion(q Question, number int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Q%d: %s\n", number, q.Text)
	for _, letter := range []string{"A", "B", "C", "D"} {
		if opt, ok := q.Options[letter]; ok {
			fmt.Fprintf(&b, "%s. %s\n", letter, opt)
		}
	}
	b.WriteString("Reply with A, B, C or D.")
	return b.String()
}

func nextQuestion(ctx context.Context, provider llm.Provider, previous []string) (Question, error) {
	if provider == nil {
		return bankQuestion(len(previous)), nil
	}

	prompt := askPrompt
	if len(previous) > 0 {
		prompt += "\n\nPrevious questions:\n- " + strings.Join(previous, "\n- ")
	}

	raw, err := provider.Generate(ctx, llm.Request{SystemPrompt: prompt})
	if err != nil {
		return Question{}, err
	}

	q, err := ParseQuestion(raw)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

var (
	questionPattern    = regexp.MustCompile(`Question:\s*(.+)`)
	answerPattern      = regexp.MustCompile(`Answer:\s*([A-D])`)
	explanationPattern = regexp.MustCompile(`(?s)Explanation:\s*(.+)`)
)

// ParseQuestion extracts a Question from the fixed generation format.
func ParseQuestion(raw string) (Question, error) {
	q := Question{Options: make(map[string]string)}

	if m := questionPattern.FindStringSubmatch(raw); m != nil {
		q.Text = strings.TrimSpace(m[1])
	}
	for _, letter := range []string{"A", "B", "C", "D"} {
		p := regexp.MustCompile(letter + `\.\s*(.+)`)
		if m := p.FindStringSubmatch(raw); m != nil {
			q.Options[letter] = strings.TrimSpace(m[1])
		}
	}
	if m := answerPattern.FindStringSubmatch(raw); m != nil {
		q.Answer = m[1]
	}
	if m := explanationPattern.FindStringSubmatch(raw); m != nil {
		q.Explanation = strings.TrimSpace(m[1])
	}

	if q.Text == "" || q.Answer == "" || len(q.Options) < 2 {
		return Question{}, fmt.Errorf("generated question is malformed: %q", raw)
	}
	return q, nil
}

var choicePattern = regexp.MustCompile(`(?i)\b([A-D])\b`)

// extractChoice finds the first standalone option letter in the answer.
func extractChoice(input string) string {
	m := choicePattern.FindStringSubmatch(input)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// bankQuestion cycles a fixed question bank when no provider is configured.
func bankQuestion(n int) Question {
	bank := []Question{
		{
			Text: "Which word is a synonym of \"happy\"?",
			Options: map[string]string{
				"A": "Angry", "B": "Joyful", "C": "Tired", "D": "Hungry",
			},
			Answer:      "B",
			Explanation: "Joyful means feeling or showing great happiness.",
		},
		{
			Text: "Which sentence uses the correct past tense?",
			Options: map[string]string{
				"A": "She goed to school.", "B": "She gone to school.",
				"C": "She went to school.", "D": "She going to school.",
			},
			Answer:      "C",
			Explanation: "\"Went\" is the past tense of \"go\".",
		},
		{
			Text: "What is the plural of \"mouse\"?",
			Options: map[string]string{
				"A": "Mouses", "B": "Mice", "C": "Mousen", "D": "Meese",
			},
			Answer:      "B",
			Explanation: "\"Mouse\" has the irregular plural \"mice\".",
		},
	}
	return bank[n%len(bank)]
}
