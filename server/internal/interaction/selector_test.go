package interaction

import (
	"math/rand"
	"strings"
	"testing"

	"saphira/server/internal/config"
	"saphira/server/internal/model"
)

var (
	lead  = model.PanelMember{ID: "hr-manager", Name: "Mrs. Adebayo", Personality: model.PersonalitySupportive}
	tech  = model.PanelMember{ID: "tech-lead", Name: "Mr. Okafor", Personality: model.PersonalityTechnical}
	stern = model.PanelMember{ID: "dept-head", Name: "Dr. Eze", Personality: model.PersonalityStrict}
)

func TestIsStrongAnswer(t *testing.T) {
	long := strings.Repeat("I led the migration project for our payments team. ", 2) + "because latency mattered"
	if !IsStrongAnswer(long) {
		t.Fatalf("expected long reasoned answer to be strong")
	}
	if IsStrongAnswer("because I said so") {
		t.Fatalf("short answers are never strong")
	}
	if IsStrongAnswer(strings.Repeat("words ", 30)) {
		t.Fatalf("long answer without reasoning markers should not be strong")
	}
}

func TestPolicyFromZeroConfig(t *testing.T) {
	if got := PolicyFromConfig(config.EngineConfig{}); got != DefaultPolicy() {
		t.Fatalf("zero config should fall back to default policy, got %+v", got)
	}
	// 零值配置下仍然会出现反应
	s := NewSelector(PolicyFromConfig(config.EngineConfig{}))
	rng := rand.New(rand.NewSource(3))
	reacted := 0
	for i := 0; i < 200; i++ {
		if s.Decide(rng, "short answer", lead, tech).Kind != KindNone {
			reacted++
		}
	}
	if reacted == 0 {
		t.Fatalf("expected some reactions with the default policy")
	}

	cfg := config.Default().Engine
	cfg.NoReactionChance, cfg.CandidateReactChance, cfg.PanelistReactChance = 1, 0, 0
	if got := PolicyFromConfig(cfg); got.NoReaction != 1 || got.CandidateReaction != 0 {
		t.Fatalf("explicit config must be kept: %+v", got)
	}
}

// TestDecideDistribution 验证三类结果的比例大致符合 60/25/15。
func TestDecideDistribution(t *testing.T) {
	s := NewSelector(DefaultPolicy())
	rng := rand.New(rand.NewSource(1))
	const n = 4000
	counts := map[Kind]int{}
	for i := 0; i < n; i++ {
		d := s.Decide(rng, "short answer", lead, tech)
		counts[d.Kind]++
		if d.Kind != KindNone && d.Text == "" {
			t.Fatalf("non-empty decision must carry text: %+v", d)
		}
	}
	if c := counts[KindNone]; c < n*55/100 || c > n*65/100 {
		t.Fatalf("none rate out of range: %d/%d", c, n)
	}
	if c := counts[KindCandidate]; c < n*20/100 || c > n*30/100 {
		t.Fatalf("candidate rate out of range: %d/%d", c, n)
	}
	if c := counts[KindPanelist]; c < n*11/100 || c > n*19/100 {
		t.Fatalf("panelist rate out of range: %d/%d", c, n)
	}
}

func TestDecidePanelistNamesPrevious(t *testing.T) {
	s := NewSelector(Policy{PanelistReaction: 1})
	d := s.Decide(rand.New(rand.NewSource(3)), "answer", lead, tech)
	if d.Kind != KindPanelist || d.Target != lead.ID {
		t.Fatalf("expected panelist reaction targeting %s, got %+v", lead.ID, d)
	}
	if strings.Contains(d.Text, "{name}") {
		t.Fatalf("template placeholder not substituted: %q", d.Text)
	}
}

// TestDecideSameSpeakerFallsBackToCandidate 同一人连续发言时不会"接自己的话"。
func TestDecideSameSpeakerFallsBackToCandidate(t *testing.T) {
	s := NewSelector(Policy{PanelistReaction: 1})
	d := s.Decide(rand.New(rand.NewSource(3)), "answer", tech, tech)
	if d.Kind != KindCandidate {
		t.Fatalf("expected candidate reaction, got %+v", d)
	}
}

func TestCandidateReactionSetDependsOnStrength(t *testing.T) {
	weak := candidateReactionSet(model.PersonalityTechnical, false)
	if len(weak) != 2 || weak[0] != "I need more detail." {
		t.Fatalf("unexpected weak technical set: %v", weak)
	}
	strong := candidateReactionSet(model.PersonalityTechnical, true)
	if strong[len(strong)-1] != "Technically sound." {
		t.Fatalf("unexpected strong technical set: %v", strong)
	}
	if got := candidateReactionSet(model.PersonalityStrict, false); got[len(got)-1] != "That's not entirely convincing." {
		t.Fatalf("unexpected weak strict set: %v", got)
	}
}

func TestHumanReactionSuppressedEarly(t *testing.T) {
	s := NewSelector(Policy{HumanReactionChance: 1, HumanReactionMinTurn: 2})
	last := map[string]string{}
	if _, ok := s.HumanReaction(rand.New(rand.NewSource(1)), last, stern, 1); ok {
		t.Fatalf("reaction must be suppressed before the minimum turn")
	}
	if len(last) != 0 {
		t.Fatalf("suppressed reaction must not be recorded")
	}
}

// TestHumanReactionNeverRepeats 同一面试官的微反应不连续重复。
func TestHumanReactionNeverRepeats(t *testing.T) {
	s := NewSelector(Policy{HumanReactionChance: 1, HumanReactionMinTurn: 0})
	rng := rand.New(rand.NewSource(9))
	last := map[string]string{}
	prev := ""
	for i := 0; i < 200; i++ {
		r, ok := s.HumanReaction(rng, last, stern, 5)
		if !ok {
			t.Fatalf("expected reaction at iteration %d", i)
		}
		if r == prev {
			t.Fatalf("reaction repeated back to back: %q", r)
		}
		if last[stern.ID] != r {
			t.Fatalf("reaction not recorded: %q vs %q", last[stern.ID], r)
		}
		prev = r
	}
}

func TestHumanReactionUnknownPersonalityUsesDefaults(t *testing.T) {
	s := NewSelector(Policy{HumanReactionChance: 1})
	m := model.PanelMember{ID: "x", Personality: "grumpy"}
	r, ok := s.HumanReaction(rand.New(rand.NewSource(2)), map[string]string{}, m, 3)
	if !ok {
		t.Fatalf("expected reaction")
	}
	found := false
	for _, d := range defaultMicroReactions {
		if d == r {
			found = true
		}
	}
	if !found {
		t.Fatalf("reaction %q not from default set", r)
	}
}

func TestClearReactions(t *testing.T) {
	sess := &model.Session{LastReactions: map[string]string{"a": "Hmm."}}
	ClearReactions(sess)
	if len(sess.LastReactions) != 0 {
		t.Fatalf("expected reactions cleared")
	}
}
