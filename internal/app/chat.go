package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/analytics"
	"github.com/paradise-007/healthally/pkg/domain"
	"github.com/paradise-007/healthally/pkg/reference"
)

const (
	noMedicineMessage  = "No direct matches found in the medicine database."
	noDiagnosisMessage = "I'm sorry, I couldn't find a match for your symptoms."
	closingMessage     = "Thank you for using **HealthAlly**. Take care of yourself, and feel free to start a new conversation if needed. " +
		"Remember, if symptoms persist or worsen, it's always best to consult a healthcare professional."

	// alternativeCount is how many rows the medicine search returns in total.
	alternativeCount = 3
)

// AskResult is the unified assistant answer: a dataset lookup plus generated advice.
type AskResult struct {
	Query    string               `json:"query"`
	Medicine *reference.Record    `json:"medicine"`
	Notice   string               `json:"notice,omitempty"`
	Answer   string               `json:"answer,omitempty"`
	AIError  string               `json:"aiError,omitempty"`
	Messages []domain.ChatMessage `json:"messages"`
}

// Ask looks the query up in the medicine dataset and asks the model for advice.
// A model failure is reported in AIError; the lookup result is still returned.
func (a *App) Ask(ctx context.Context, sess domain.Session, query string) (AskResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return AskResult{}, ErrQueryRequired
	}
	res := AskResult{Query: query}
	msg, err := a.saveMessage(ctx, sess.SubjectID, domain.ChatRoleUser, query)
	if err != nil {
		return AskResult{}, err
	}
	res.Messages = append(res.Messages, msg)

	if record, ok := a.medicines.First(query); ok {
		res.Medicine = &record
		msg, err := a.saveMessage(ctx, sess.SubjectID, domain.ChatRoleMedicine, record.Text())
		if err != nil {
			return AskResult{}, err
		}
		res.Messages = append(res.Messages, msg)
	} else {
		res.Notice = noMedicineMessage
	}

	if a.advisor == nil {
		res.AIError = "Error generating AI response: advice generator not configured"
	} else if answer, err := a.advisor.Advise(ctx, query); err != nil {
		util.LoggerFromContext(ctx).Warn("advice generation failed", "err", err)
		res.AIError = fmt.Sprintf("Error generating AI response: %v", err)
	} else {
		res.Answer = answer
		msg, err := a.saveMessage(ctx, sess.SubjectID, domain.ChatRoleAssistant, answer)
		if err != nil {
			return AskResult{}, err
		}
		res.Messages = append(res.Messages, msg)
	}

	details := map[string]any{"advice": res.AIError == ""}
	if res.Medicine != nil {
		if name, ok := firstValue(*res.Medicine); ok {
			details["medicine"] = name
		}
	}
	a.recordQuery(ctx, sess, analytics.QueryAsk, query, res.Medicine != nil, details)
	return res, nil
}

// SymptomInput is the health chat form.
type SymptomInput struct {
	Department   string `json:"department"`
	Symptoms     string `json:"symptoms"`
	DurationDays int    `json:"durationDays"`
}

// SymptomResult lists the assistant replies in the order they were saved.
type SymptomResult struct {
	Diagnosis *reference.Diagnosis  `json:"diagnosis"`
	FirstAid  *FirstAidAvailability `json:"firstAid,omitempty"`
	Replies   []string              `json:"replies"`
	Messages  []domain.ChatMessage  `json:"messages"`
}

// CheckSymptoms runs the symptom conversation: diagnosis, first aid availability in
// the chosen department, advice based on how long the symptoms lasted, and a closing note.
// Every message is saved to the caller's chat history.
func (a *App) CheckSymptoms(ctx context.Context, sess domain.Session, in SymptomInput) (SymptomResult, error) {
	symptoms := strings.TrimSpace(in.Symptoms)
	if symptoms == "" {
		return SymptomResult{}, ErrSymptomsRequired
	}
	if !domain.IsDepartment(in.Department) {
		return SymptomResult{}, ErrUnknownDepartment
	}
	if in.DurationDays < 0 {
		return SymptomResult{}, ErrInvalidDuration
	}
	var res SymptomResult
	msg, err := a.saveMessage(ctx, sess.SubjectID, domain.ChatRoleUser, symptoms)
	if err != nil {
		return SymptomResult{}, err
	}
	res.Messages = append(res.Messages, msg)
	reply := func(text string) error {
		msg, err := a.saveMessage(ctx, sess.SubjectID, domain.ChatRoleAssistant, text)
		if err != nil {
			return err
		}
		res.Replies = append(res.Replies, text)
		res.Messages = append(res.Messages, msg)
		return nil
	}

	diagnosis, found := a.symptoms.Diagnose(symptoms)
	if !found {
		if err := reply(noDiagnosisMessage); err != nil {
			return SymptomResult{}, err
		}
	} else {
		res.Diagnosis = &diagnosis
		if err := reply(diagnosisMessage(diagnosis)); err != nil {
			return SymptomResult{}, err
		}
		availability, err := a.FirstAid(ctx, in.Department, diagnosis.Medicines(), diagnosis.MedicineList())
		if err != nil {
			return SymptomResult{}, err
		}
		res.FirstAid = &availability
		if err := reply(availability.Message); err != nil {
			return SymptomResult{}, err
		}
	}
	if err := reply(durationAdvice(in.DurationDays)); err != nil {
		return SymptomResult{}, err
	}
	if err := reply(closingMessage); err != nil {
		return SymptomResult{}, err
	}

	details := map[string]any{"department": in.Department, "durationDays": in.DurationDays}
	if found {
		details["condition"] = diagnosis.Condition
	}
	a.recordQuery(ctx, sess, analytics.QuerySymptoms, symptoms, found, details)
	return res, nil
}

func diagnosisMessage(d reference.Diagnosis) string {
	return fmt.Sprintf("It seems you may have **%s**. Here are some recommendations:\n\n"+
		"- **Precautions:** %s\n"+
		"- **Treatment:** %s\n"+
		"- **Suggested Medicine(s):** %s\n", d.Condition, d.Precaution, d.Treatment, d.MedicineList())
}

func durationAdvice(days int) string {
	switch {
	case days <= 1:
		return "Since this is your first day experiencing symptoms, it may not be a serious concern yet. " +
			"Keep an eye on your symptoms, and follow the suggested precautions."
	case days == 2:
		return "If your symptoms continue, keep monitoring and taking the recommended precautions. " +
			"If symptoms worsen, consider consulting a doctor."
	default:
		return "Since your symptoms have persisted for more than 2 days, it's advisable to consult a doctor soon. " +
			"You can book an appointment from the appointments page."
	}
}

// MedicineSearch is the first matching row plus the next matches as alternatives.
type MedicineSearch struct {
	Query        string             `json:"query"`
	Primary      *reference.Record  `json:"primary"`
	Alternatives []reference.Record `json:"alternatives"`
	Message      string             `json:"message,omitempty"`
}

func (a *App) SearchMedicines(ctx context.Context, sess domain.Session, query string) (MedicineSearch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return MedicineSearch{}, ErrQueryRequired
	}
	res := MedicineSearch{Query: query, Alternatives: []reference.Record{}}
	rows := a.medicines.Search(query, alternativeCount)
	if len(rows) == 0 {
		res.Message = noMedicineMessage
	} else {
		res.Primary = &rows[0]
		res.Alternatives = rows[1:]
	}
	a.recordQuery(ctx, sess, analytics.QueryMedicineSearch, query, len(rows) > 0, map[string]any{"results": len(rows)})
	return res, nil
}

func firstValue(r reference.Record) (string, bool) {
	for _, f := range r.Fields {
		if f.Value != nil && strings.TrimSpace(*f.Value) != "" {
			return *f.Value, true
		}
	}
	return "", false
}
