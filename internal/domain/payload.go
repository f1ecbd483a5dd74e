package domain

// Payload is the metadata stored alongside one indexed vector. The index
// never interprets it beyond handing it back with search results. The two
// concrete shapes are the portfolio link and the book passage.
type Payload interface {
	Kind() string
}

// LinkPayload is a portfolio entry: the indexed text is a tech stack and the
// payload is the project link it maps to.
type LinkPayload struct {
	URL string `json:"url"`
}

func (LinkPayload) Kind() string { return "link" }

// PassagePayload is a book chunk: the indexed text itself plus its citation.
type PassagePayload struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func (PassagePayload) Kind() string { return "passage" }

// ContextText returns the text a payload contributes to a generation prompt.
func ContextText(p Payload) string {
	switch v := p.(type) {
	case LinkPayload:
		return v.URL
	case PassagePayload:
		return v.Text
	}
	return ""
}

// Cite derives a citation from a payload and its retrieval score.
func Cite(p Payload, score float64) Citation {
	switch v := p.(type) {
	case LinkPayload:
		return Citation{Source: v.URL, Score: score}
	case PassagePayload:
		return Citation{Source: v.Source, Page: v.Page, Score: score}
	}
	return Citation{Score: score}
}
