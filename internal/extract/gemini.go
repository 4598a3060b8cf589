package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for statement parsing.
const DefaultModelName = "gemini-2.0-flash"

const statementPrompt = `You are a financial statement parser for credit card PDF statements.

Task:
- Parse the attached credit card statement.
- Output STRICT JSON only (no comments, no trailing commas, no extra text).

The output must be a single JSON object with this shape:
{
  "card_info": {"bank": string or null, "card_name": string or null, "last_four": string or null},
  "statement_info": {
    "period_start": "YYYY-MM-DD" or null, "period_end": "YYYY-MM-DD" or null,
    "total_amount": number or null, "min_payment": number or null, "due_date": "YYYY-MM-DD" or null
  },
  "transactions": [
    {"date": "YYYY-MM-DD", "description": string, "merchant": string or null,
     "amount": number, "category": string or null}
  ]
}

Rules:
- "amount" is positive for purchases and negative for refunds or credits.
- Use one of these categories when possible: Market, Restoran, Ulaşım, Giyim,
  Teknoloji, Sağlık, Eğlence, Fatura, Abonelik, Eşya, Kırtasiye, İade, Diğer.
- If a field cannot be determined, set it to null.
- Return ONLY valid raw JSON. Do NOT wrap the response in code fences.
- Output must begin with "{" and end with "}".`

// GeminiExtractor calls the Gemini API to parse statement PDFs. It is
// the default Extractor implementation; tests use fakes instead.
type GeminiExtractor struct {
	model   string
	apiKey  string
	timeout time.Duration
}

// NewGeminiExtractor builds an extractor for the given model name,
// falling back to DefaultModelName when empty. An empty apiKey defers
// to the genai client's own environment lookup; a zero timeout
// disables the per-call deadline.
func NewGeminiExtractor(model, apiKey string, timeout time.Duration) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{model: model, apiKey: apiKey, timeout: timeout}
}

// ParseStatement sends the PDF to Gemini and decodes its JSON answer.
func (g *GeminiExtractor) ParseStatement(ctx context.Context, pdf []byte) (*Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, &ExtractionError{Reason: "create genai client", Err: err}
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: statementPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdf,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, &ExtractionError{Reason: "generate content", Err: err}
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, &ExtractionError{Reason: "empty response from model"}
	}

	res, err := Decode([]byte(CleanModelJSON(rawText)))
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Statement parsed by model",
		"model", g.model,
		"transactions", len(res.Transactions))

	return res, nil
}

// CleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes emits despite instructions, keeping only the outermost
// JSON object.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
