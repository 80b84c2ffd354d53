// Package agent drives the quiz chain: it loads each question, reasons
// over it with the LLM and tools, and submits the answer in time.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Darunesh1/tds-quiz-solver/internal/browser"
	"github.com/Darunesh1/tds-quiz-solver/internal/download"
	"github.com/Darunesh1/tds-quiz-solver/internal/llm"
	"github.com/Darunesh1/tds-quiz-solver/internal/submit"
	"github.com/Darunesh1/tds-quiz-solver/internal/timer"
	"github.com/Darunesh1/tds-quiz-solver/internal/tools"
	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

const (
	defaultMaxSteps = 15

	// maxQuestions bounds a single chain so a grader bug cannot loop
	// the solver forever.
	maxQuestions = 50

	// finalizeGrace is the window for the forced final answer and its
	// submission after the question budget expires.
	finalizeGrace = 15 * time.Second
)

// Generator is the LLM surface the solver needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts *llm.GenerateOptions) (string, error)
}

// PageLoader renders quiz pages.
type PageLoader interface {
	LoadPage(ctx context.Context, url string) (*browser.Page, error)
}

// AnswerPoster delivers answers to the grader.
type AnswerPoster interface {
	Submit(ctx context.Context, submitURL string, payload submit.Payload) (*submit.Result, error)
}

// Request identifies one quiz chain run.
type Request struct {
	JobID  string
	Email  string
	Secret string
	URL    string
}

// Config tunes the solver.
type Config struct {
	// MaxSteps caps reasoning steps per question.
	MaxSteps int
	// QuestionBudget is the per-question force-submit threshold.
	QuestionBudget time.Duration
}

// Solver runs quiz chains question by question.
type Solver struct {
	llm        Generator
	browser    PageLoader
	downloader *download.Downloader
	submitter  AnswerPoster
	cfg        Config
}

// NewSolver wires the solver's collaborators together.
func NewSolver(generator Generator, loader PageLoader, downloader *download.Downloader, poster AnswerPoster, cfg Config) *Solver {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.QuestionBudget <= 0 {
		cfg.QuestionBudget = timer.DefaultForceSubmit
	}
	return &Solver{
		llm:        generator,
		browser:    loader,
		downloader: downloader,
		submitter:  poster,
		cfg:        cfg,
	}
}

// SolveChain walks the quiz chain starting at req.URL until the grader
// stops returning a next question. Returns the number of questions
// answered.
func (s *Solver) SolveChain(ctx context.Context, req Request) (int, error) {
	qt := timer.New(s.cfg.QuestionBudget)
	answered := 0
	url := req.URL

	for url != "" {
		if answered >= maxQuestions {
			return answered, fmt.Errorf("question limit reached after %d questions", answered)
		}
		if err := ctx.Err(); err != nil {
			return answered, err
		}

		qt.Start()
		log.Info("Question %d: %s", qt.GetStatus().QuestionNumber, url)

		result, err := s.solveQuestion(ctx, req, qt, url)
		if err != nil {
			return answered, fmt.Errorf("question %d (%s): %w", answered+1, url, err)
		}
		answered++

		if result.Correct {
			log.Info("Question %d answered correctly", answered)
		} else {
			log.Warn("Question %d marked incorrect: %s", answered, result.Reason)
		}
		url = result.URL
	}

	log.Info("Quiz chain complete: %d questions answered", answered)
	return answered, nil
}

// solveQuestion runs one question end to end: load, plan, reason, submit.
func (s *Solver) solveQuestion(ctx context.Context, req Request, qt *timer.QuestionTimer, url string) (*submit.Result, error) {
	qctx, cancel := qt.Context(ctx)
	defer cancel()

	page, err := s.browser.LoadPage(qctx, url)
	if err != nil {
		return nil, fmt.Errorf("load question page: %w", err)
	}

	question := browser.ExtractInstructions(page.HTML)
	if question == "" {
		question = page.Text
	}

	submitURL, err := browser.ResolveSubmitURL(page.URL, browser.FindSubmitURL(page.HTML, page.Text))
	if err != nil {
		return nil, fmt.Errorf("resolve submit url: %w", err)
	}
	log.Info("Submit endpoint: %s", submitURL)

	registry, err := s.buildRegistry(req.JobID, qt)
	if err != nil {
		return nil, err
	}
	toolDocs := registry.DescribeForPrompt()

	progress := &progressLog{}
	answer := s.reason(qctx, qt, registry, toolDocs, page, question, progress)

	// The question context may already be dead; submission gets its own
	// short window.
	subCtx, subCancel := context.WithTimeout(ctx, finalizeGrace)
	defer subCancel()

	payload := submit.Payload{
		Email:  req.Email,
		Secret: req.Secret,
		URL:    url,
		Answer: answer,
	}
	result, err := s.submitter.Submit(subCtx, submitURL, payload)
	if err != nil {
		// Last resort: an explicit null answer keeps the chain moving
		// when the computed answer itself broke serialization.
		log.Warn("Submission failed, retrying with null answer: %v", err)
		payload.Answer = nil
		result, err = s.submitter.Submit(subCtx, submitURL, payload)
		if err != nil {
			return nil, fmt.Errorf("submit answer: %w", err)
		}
	}
	return result, nil
}

// reason runs planning and the step loop, falling back to a forced
// final answer when the budget or the step limit runs out. It always
// returns some answer, possibly nil.
func (s *Solver) reason(qctx context.Context, qt *timer.QuestionTimer, registry *tools.Registry, toolDocs string, page *browser.Page, question string, progress *progressLog) any {
	plan := s.plan(qctx, page, question, toolDocs)
	if plan != "" {
		progress.add("Plan: " + plan)
	}

	for step := 0; step < s.cfg.MaxSteps; step++ {
		if qt.ShouldForceSubmit() || qctx.Err() != nil {
			log.Warn("Question budget exhausted at step %d, forcing final answer", step)
			return s.finalize(qctx, question, progress)
		}

		prompt := stepPrompt(question, plan, progress.render(), qt.Remaining().Seconds(), toolDocs)
		reply, err := s.llm.Generate(qctx, prompt, llm.NewGenerateOptions().WithSystem(systemPrompt))
		if err != nil {
			log.Warn("Step %d generation failed: %v", step, err)
			return s.finalize(qctx, question, progress)
		}

		decision, err := parseStep(reply)
		if err != nil {
			progress.add(fmt.Sprintf("Step %d: reply was not valid JSON (%v), retrying", step+1, err))
			continue
		}

		if decision.Action == "answer" {
			log.Info("Agent answered after %d steps: %s", step, decision.Reasoning)
			return decision.Answer
		}

		result := s.runTool(qctx, registry, decision)
		progress.add(fmt.Sprintf("Step %d: %s(%s)\nResult: %s",
			step+1, decision.Tool, compactArgs(decision.Args), result))
	}

	log.Warn("Step limit reached, forcing final answer")
	return s.finalize(qctx, question, progress)
}

func (s *Solver) plan(qctx context.Context, page *browser.Page, question, toolDocs string) string {
	reply, err := s.llm.Generate(qctx, planningPrompt(page.URL, question, page.Links, toolDocs),
		llm.NewGenerateOptions().WithSystem(systemPrompt))
	if err != nil {
		log.Warn("Planning failed: %v", err)
		return ""
	}
	decision, err := parsePlan(reply)
	if err != nil {
		log.Warn("Plan reply unparseable: %v", err)
		return ""
	}
	if decision.AnswerFormat != "" {
		return fmt.Sprintf("%s (expected answer format: %s)", decision.Plan, decision.AnswerFormat)
	}
	return decision.Plan
}

// finalize forces a final answer in its own grace window so it still
// works after the question context expired.
func (s *Solver) finalize(qctx context.Context, question string, progress *progressLog) any {
	ctx := qctx
	if qctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(qctx), finalizeGrace)
		defer cancel()
	}

	reply, err := s.llm.Generate(ctx, finalizePrompt(question, progress.render()),
		llm.NewGenerateOptions().WithSystem(systemPrompt))
	if err != nil {
		log.Error("Forced finalization failed: %v", err)
		return nil
	}
	decision, err := parseFinal(reply)
	if err != nil {
		log.Error("Final reply unparseable: %v", err)
		return nil
	}
	return decision.Answer
}

func (s *Solver) runTool(qctx context.Context, registry *tools.Registry, decision *stepDecision) string {
	tool, ok := registry.Get(decision.Tool)
	if !ok {
		return fmt.Sprintf("ERROR: unknown tool %q", decision.Tool)
	}

	args := decision.Args
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	result, err := tool.Execute(qctx, args)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	if result.IsError {
		return "ERROR: " + result.Content
	}
	return result.Content
}

func (s *Solver) buildRegistry(jobID string, qt *timer.QuestionTimer) (*tools.Registry, error) {
	jobDir, err := s.downloader.JobDir(jobID)
	if err != nil {
		return nil, fmt.Errorf("prepare job workspace: %w", err)
	}

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewSendRequestTool(),
		tools.NewDownloadFileTool(s.downloader, jobID),
		tools.NewRunCodeTool(jobDir),
		tools.NewAddDependenciesTool(),
		tools.NewListPackagesTool(),
		tools.NewScrapePageTool(s.browser),
		tools.NewTimeRemainingTool(qt),
		tools.NewSummarizeTool(s.llm),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func compactArgs(args json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	s := string(args)
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
