package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"saphira/server/internal/engine"
	"saphira/server/internal/model"
	"saphira/server/internal/orchestrator"
	"saphira/server/internal/voice"

	"github.com/spf13/cobra"
)

var (
	flagUseCase      string
	flagDescription  string
	flagCountry      string
	flagTopic        string
	flagCompany      string
	flagMaxQuestions int
	flagSeed         int64
	flagExport       string
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run a text-mode practice session in the terminal",
	Long: `Run a practice session in the terminal. Type each answer on one line.
Type /end to finish early; the session summary is printed at the end.`,
	RunE: runPractice,
}

func init() {
	f := practiceCmd.Flags()
	f.StringVarP(&flagUseCase, "use-case", "u", "", "use case (job_interview, embassy_interview, business_pitch, ...)")
	f.StringVarP(&flagDescription, "describe", "d", "", "free-text description used to detect use case and country")
	f.StringVar(&flagCountry, "country", "", "nigeria, kenya or south_africa")
	f.StringVar(&flagTopic, "topic", "", "role or topic, e.g. \"Backend Engineer\"")
	f.StringVar(&flagCompany, "company", "", "company name for job interviews")
	f.IntVarP(&flagMaxQuestions, "max-questions", "n", 0, "number of questions (0 uses the use case default)")
	f.Int64Var(&flagSeed, "seed", 0, "random seed for a reproducible session")
	f.StringVar(&flagExport, "export", "", "write the finished session JSON to this path")
}

func runPractice(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Logging.Level = "quiet"
	if _, err := setupLogging(cfg.Logging); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	catalog := a.orch.Engine().Catalog()
	useCase := model.UseCase(flagUseCase)
	country := model.Country(flagCountry)
	if useCase == "" {
		useCase = catalog.DetectUseCase(flagDescription)
	}
	if country == "" && flagDescription != "" {
		country = catalog.DetectCountry(flagDescription)
	}

	created, err := a.orch.Create(ctx, useCase, engine.Options{
		Topic:        flagTopic,
		Company:      flagCompany,
		Country:      country,
		MaxQuestions: flagMaxQuestions,
		Seed:         flagSeed,
	})
	if err != nil {
		return err
	}
	id := created.Session.ID
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🎤 %s practice (%s), %d questions. Type /end to finish.\n\n", useCase, created.Session.Country, created.Session.MaxQuestions)

	speaker := &voice.TextSpeaker{W: out, Names: make(map[string]string)}
	for _, m := range created.Session.Panel {
		speaker.Names[m.ID] = fmt.Sprintf("%s (%s)", m.Name, m.Role)
	}

	started, err := a.orch.Start(ctx, id)
	if err != nil {
		return err
	}
	if _, err := voice.Play(ctx, speaker, textSteps(voice.PlanMessages(started.Messages, started.Session.Panel))); err != nil {
		return err
	}

	if _, err := converse(ctx, a.orch, started.Session, voice.NewLineTranscriber(cmd.InOrStdin()), speaker, out); err != nil {
		return err
	}

	summary, err := a.orch.Summary(context.Background(), id)
	if err != nil {
		return err
	}
	printSummary(out, summary)

	if flagExport != "" {
		data, err := a.orch.Export(context.Background(), id)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagExport, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(out, "\n💾 session saved to %s\n", flagExport)
	}
	return nil
}

// converse 一问一答直到会话完成。输入结束、被中断或输入 /end 时提前结束会话。
func converse(ctx context.Context, orch *orchestrator.Orchestrator, s *model.Session, tr voice.Transcriber, speaker voice.Speaker, out io.Writer) (*model.Session, error) {
	id := s.ID
	for s.Status != model.StatusCompleted {
		fmt.Fprint(out, "\nYou: ")
		text, err := tr.Listen(ctx)
		if errors.Is(err, voice.ErrNoInput) || errors.Is(err, context.Canceled) || strings.EqualFold(text, "/end") {
			res, endErr := orch.End(context.Background(), id)
			if endErr != nil {
				return nil, endErr
			}
			return res.Session, nil
		}
		if err != nil {
			return nil, err
		}

		res, err := orch.Respond(ctx, id, text)
		if err != nil {
			return nil, err
		}
		printFeedback(out, res)
		fmt.Fprintln(out)
		if _, err := voice.Play(ctx, speaker, textSteps(voice.PlanTurn(res.TurnResult, res.Session.Panel))); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			return nil, err
		}
		s = res.Session
	}
	return s, nil
}

// textSteps 文字模式没有音色，用成员 ID 作为标识，TextSpeaker 据此显示姓名。
func textSteps(steps []voice.Step) []voice.Step {
	for i := range steps {
		steps[i].VoiceID = steps[i].PanelMemberID
	}
	return steps
}

func printFeedback(w io.Writer, res *orchestrator.TurnResult) {
	fb := res.Feedback
	if fb == nil {
		return
	}
	fmt.Fprintf(w, "   📝 %d/10 (%s)", fb.Score, fb.Rating)
	if len(fb.Improvements) > 0 {
		fmt.Fprintf(w, " · tip: %s", fb.Improvements[0])
	}
	fmt.Fprintln(w)
}

func printSummary(w io.Writer, s model.SessionSummary) {
	fmt.Fprintf(w, "\n📊 Session summary\n")
	fmt.Fprintf(w, "   Overall: %d/10 (%s), %s\n", s.OverallScore, s.Rating, s.Recommendation)
	fmt.Fprintf(w, "   Answered: %d in %d min\n", s.QuestionsAnswered, s.DurationMinutes)
	fmt.Fprintf(w, "   Cultural adaptability: %s\n", s.CulturalAdaptability)
	for _, st := range s.Strengths {
		fmt.Fprintf(w, "   ✅ %s\n", st)
	}
	for _, im := range s.Improvements {
		fmt.Fprintf(w, "   ⚠️  %s\n", im)
	}
	for name, fb := range s.PanelFeedback {
		fmt.Fprintf(w, "   %s: %s\n", name, fb)
	}
}
