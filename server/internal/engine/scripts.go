package engine

import (
	"fmt"

	"saphira/server/internal/model"
	"saphira/server/internal/personality"
)

type scriptLine struct {
	memberID string
	text     string
	question bool
}

// openingLines 开场三段：自我介绍 → 过渡语 → 非技术开场问题。
func openingLines(s *model.Session) []scriptLine {
	lead := s.Panel[0]
	lines := make([]scriptLine, 0, len(s.Panel)+2)
	lines = append(lines, scriptLine{memberID: lead.ID, text: leadIntro(s, lead)})
	for _, m := range s.Panel[1:] {
		lines = append(lines, scriptLine{memberID: m.ID, text: fmt.Sprintf("I'm %s, %s.", m.Name, m.Role)})
	}
	lines = append(lines,
		scriptLine{memberID: lead.ID, text: comfortLine(s.UseCase)},
		scriptLine{memberID: lead.ID, text: openingQuestion(s.UseCase), question: true},
	)
	return lines
}

func leadIntro(s *model.Session, lead model.PanelMember) string {
	opening := personality.Lookup(lead.Personality).OpeningPhrases[0]
	switch s.UseCase {
	case model.UseCaseJobInterview:
		at := ""
		if s.Company != "" {
			at = " at " + s.Company
		}
		return fmt.Sprintf("Good morning. %s My name is %s, %s. I'll be leading your interview today%s.", opening, lead.Name, lead.Role, at)
	case model.UseCaseEmbassyInterview:
		return fmt.Sprintf("Good morning. I'm %s, %s. Please have your passport and documents ready.", lead.Name, lead.Role)
	case model.UseCaseScholarshipInterview:
		return fmt.Sprintf("Good morning. Welcome to the scholarship interview. I'm %s, %s, and I'll be chairing this panel.", lead.Name, lead.Role)
	case model.UseCaseBusinessPitch:
		return fmt.Sprintf("Good morning. I'm %s, %s. We have time for about %d questions, so keep your answers sharp.", lead.Name, lead.Role, s.MaxQuestions)
	case model.UseCaseBoardPresentation:
		return fmt.Sprintf("Good morning. Thank you for joining us today. I'm %s, %s. We have limited time, so please be concise.", lead.Name, lead.Role)
	default:
		return fmt.Sprintf("Good morning. %s I'm %s, %s.", opening, lead.Name, lead.Role)
	}
}

func comfortLine(u model.UseCase) string {
	switch u {
	case model.UseCaseJobInterview:
		return "Alright, thank you for joining us today."
	case model.UseCaseEmbassyInterview:
		return "Alright. Let's proceed with the interview."
	case model.UseCaseScholarshipInterview:
		return "Thank you for coming. We appreciate your interest."
	case model.UseCaseBusinessPitch:
		return "Alright. We're ready to hear your pitch."
	case model.UseCaseBoardPresentation:
		return "Alright. Let's hear what you have for us."
	default:
		return "Alright. Let's begin."
	}
}

func openingQuestion(u model.UseCase) string {
	switch u {
	case model.UseCaseJobInterview:
		return "Please start by introducing yourself."
	case model.UseCaseEmbassyInterview:
		return "Please introduce yourself and state the purpose of your trip."
	case model.UseCaseScholarshipInterview:
		return "Please introduce yourself and tell us briefly about your academic background."
	case model.UseCaseBusinessPitch:
		return "Please start by telling us about yourself and your team."
	case model.UseCaseAcademicPresentation:
		return "Please begin with a brief introduction of yourself and your research area."
	case model.UseCaseBoardPresentation:
		return "Please introduce yourself and your role in this proposal."
	default:
		return "Please introduce yourself."
	}
}

// closingText 收尾语。求职面试的收尾会反问候选人有没有问题。
func closingText(s *model.Session) string {
	switch s.UseCase {
	case model.UseCaseJobInterview:
		company := s.Company
		if company == "" {
			company = "the company"
		}
		return fmt.Sprintf("Thank you for your time today. That brings us to the end of the interview. Do you have any questions for me about the role or %s?", company)
	case model.UseCaseEmbassyInterview:
		return "Your application is under review. You'll be notified of the decision within 5 business days. Next applicant, please."
	case model.UseCaseScholarshipInterview:
		return "Thank you for presenting your case. The committee will review all applications and notify successful candidates within two weeks. We wish you the best."
	case model.UseCaseBusinessPitch:
		return "Thank you for the presentation. We'll discuss internally and get back to you. Please send your detailed financial projections to our office."
	case model.UseCaseAcademicPresentation:
		return "Thank you for your presentation. The panel will now deliberate. You may wait outside."
	case model.UseCaseBoardPresentation:
		return "Thank you. The board will discuss this proposal. We'll communicate our decision by end of week."
	default:
		return "Thank you for your time. That concludes our session."
	}
}
