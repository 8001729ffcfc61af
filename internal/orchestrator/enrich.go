package orchestrator

import (
	"fmt"
	"strings"

	"hukudok/internal/metadata"
	"hukudok/internal/reflists"
)

// Enrich fills and corrects doc from the office reference lists and returns
// warnings about values the lists do not know. A nil lists is a no-op.
//
//   - an empty lawyer code is taken from the lawyer named in the summary or
//     the names found in the document
//   - an unknown client is replaced by the first known detected client
func Enrich(doc *metadata.Document, lists *reflists.Lists) []string {
	if lists == nil || doc == nil {
		return nil
	}
	var warnings []string

	if strings.TrimSpace(doc.Lawyer) == "" && len(lists.Lawyers) > 0 {
		text := strings.Join(append([]string{doc.Summary}, doc.NamesInText...), " ")
		if code, ok := lists.Lawyers.FindBest(text); ok {
			doc.Lawyer = code
		}
	}

	if clients := lists.Clients(); clients.Len() > 0 {
		var others []string
		for _, raw := range doc.Clients {
			others = append(others, reflists.SplitClients(raw)...)
		}
		others = append(others, doc.NamesInText...)

		name, source := clients.Match(doc.Client, others)
		switch source {
		case reflists.MatchCorrected:
			if strings.TrimSpace(doc.Client) == "" {
				warnings = append(warnings, fmt.Sprintf("no client given, using %q", name))
			} else {
				warnings = append(warnings, fmt.Sprintf("client %q is not a known client, using %q", doc.Client, name))
			}
			doc.Client = name
		case reflists.MatchFallback:
			if strings.TrimSpace(doc.Client) != "" {
				warnings = append(warnings, fmt.Sprintf("client %q is not a known client", doc.Client))
			}
		}
	}

	if doc.DocumentType != "" && len(lists.DocumentTypes) > 0 && !lists.DocumentTypes.Known(doc.DocumentType) {
		warnings = append(warnings, fmt.Sprintf("unknown document type code %q", doc.DocumentType))
	}
	if doc.Status != "" && len(lists.Statuses) > 0 && !lists.Statuses.Known(doc.Status) {
		warnings = append(warnings, fmt.Sprintf("unknown status code %q", doc.Status))
	}

	return warnings
}
