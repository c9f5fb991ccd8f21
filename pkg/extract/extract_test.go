package extract

import (
	"reflect"
	"testing"
)

func TestExtract_WholeText(t *testing.T) {
	text := `{"visualizationType":"metrics","title":"KPIs"}`
	got := Extract(text)

	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1", len(got))
	}
	if got[0]["visualizationType"] != "metrics" || got[0]["title"] != "KPIs" {
		t.Errorf("payload = %v", got[0])
	}
}

func TestExtract_EmbeddedInProse(t *testing.T) {
	text := `Here are your KPIs: {"visualizationType":"metrics","title":"KPIs"} as requested.`
	got := Extract(text)

	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1: %v", len(got), got)
	}
	if got[0]["title"] != "KPIs" {
		t.Errorf("payload = %v", got[0])
	}
}

func TestExtract_BracesInsideQuotedStrings(t *testing.T) {
	text := `Prose {"visualizationType":"chart","note":"use { and } carefully","n":1} more prose`
	got := Extract(text)

	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1: %v", len(got), got)
	}
	if got[0]["note"] != "use { and } carefully" {
		t.Errorf("note = %v", got[0]["note"])
	}
	if got[0]["n"] != float64(1) {
		t.Errorf("n = %v, payload split early?", got[0]["n"])
	}
}

func TestExtract_EscapedQuoteInsideString(t *testing.T) {
	text := `{"visualizationType":"chart","label":"she said \"hi {there}\" today"}`
	got := Extract(text)

	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1: %v", len(got), got)
	}
	if got[0]["label"] != `she said "hi {there}" today` {
		t.Errorf("label = %v", got[0]["label"])
	}
}

func TestExtract_FencedCodeBlock(t *testing.T) {
	text := "Summary below.\n```json\n{\"visualizationType\":\"table\",\"rows\":3}\n```\nDone."
	got := Extract(text)

	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1: %v", len(got), got)
	}
	if got[0]["visualizationType"] != "table" {
		t.Errorf("payload = %v", got[0])
	}
}

func TestXMLWrapped(t *testing.T) {
	t.Run("closing tag present, type injected", func(t *testing.T) {
		text := `<visualization-data type="gauge">{"value":42}</visualization-data>`
		got := XMLWrapped(text)

		if len(got) != 1 {
			t.Fatalf("got %d payloads, want 1", len(got))
		}
		if got[0]["visualizationType"] != "gauge" {
			t.Errorf("injected type = %v", got[0]["visualizationType"])
		}
	})

	t.Run("closing tag missing", func(t *testing.T) {
		text := `<visualization-data type="gauge">{"value":42}`
		got := XMLWrapped(text)

		if len(got) != 1 {
			t.Fatalf("got %d payloads, want 1", len(got))
		}
	})

	t.Run("explicit type not overridden", func(t *testing.T) {
		text := `<visualization-data type="gauge">{"visualizationType":"dial","value":1}</visualization-data>`
		got := XMLWrapped(text)

		if len(got) != 1 {
			t.Fatalf("got %d payloads, want 1", len(got))
		}
		if got[0]["visualizationType"] != "dial" {
			t.Errorf("type = %v, want dial", got[0]["visualizationType"])
		}
	})

	t.Run("truncated payload discarded", func(t *testing.T) {
		text := `<visualization-data type="gauge">{"value":42,"series":[1,2`
		if got := XMLWrapped(text); got != nil {
			t.Errorf("got %v, want nil for truncated payload", got)
		}
	})
}

func TestLooseTemplateID(t *testing.T) {
	t.Run("matching suffix", func(t *testing.T) {
		text := `Result: {"templateId":"kpi-visualization","data":[1,2]} enjoy.`
		got := LooseTemplateID(text)

		if len(got) != 1 {
			t.Fatalf("got %d payloads, want 1: %v", len(got), got)
		}
		if got[0]["templateId"] != "kpi-visualization" {
			t.Errorf("payload = %v", got[0])
		}
	})

	t.Run("non-matching suffix ignored", func(t *testing.T) {
		text := `{"templateId":"kpi-report","data":[1,2]}`
		if got := LooseTemplateID(text); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})

	t.Run("nested object resolved to enclosing brace", func(t *testing.T) {
		text := `prose {"meta":{"x":1},"templateId":"kpi-visualization"} end`
		got := LooseTemplateID(text)

		if len(got) != 1 {
			t.Fatalf("got %d payloads, want 1: %v", len(got), got)
		}
		meta, ok := got[0]["meta"].(map[string]any)
		if !ok || meta["x"] != float64(1) {
			t.Errorf("payload = %v, enclosing object not recovered", got[0])
		}
	})
}

func TestExtract_WholeTextAndBraceScanAgree(t *testing.T) {
	text := `{"visualizationType":"metrics","title":"KPIs","values":[1,2,3]}`

	whole := WholeText(text)
	scanned := BraceScan(text)

	if len(whole) != 1 || len(scanned) != 1 {
		t.Fatalf("whole=%v scanned=%v", whole, scanned)
	}
	if !reflect.DeepEqual(whole[0], scanned[0]) {
		t.Errorf("strategies disagree: whole=%v scanned=%v", whole[0], scanned[0])
	}
}

func TestExtract_DeduplicatesAcrossStrategies(t *testing.T) {
	// The same object is reachable via the brace scan (visualizationType
	// occurrence) and the loose templateId fallback.
	text := `chart: {"visualizationType":"bar","templateId":"bars-visualization","n":2}`
	got := Extract(text)

	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1: %v", len(got), got)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	text := "intro {\"visualizationType\":\"bar\",\"n\":2} and\n```json\n{\"visualizationType\":\"pie\",\"n\":3}\n```"

	first := Extract(text)
	second := Extract(text)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not idempotent: %v vs %v", first, second)
	}
	if len(first) != 2 {
		t.Errorf("got %d payloads, want 2: %v", len(first), first)
	}
}

func TestExtract_MalformedCandidatesDropped(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"truncated object", `{"visualizationType":"bar","values":[1,2`},
		{"unparseable candidate", `{"visualizationType": bar}`},
		{"untagged object", `{"title":"no tag here"}`},
		{"no json at all", `just a plain sentence`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text); len(got) != 0 {
				t.Errorf("Extract(%q) = %v, want empty", tt.text, got)
			}
		})
	}
}
